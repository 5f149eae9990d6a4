package dictionary

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// maxDownloadSize bounds the decompressed size of downloaded data files.
const maxDownloadSize = 64 * 1024 * 1024

// EnsureFile makes sure path exists, downloading it from rawURL when it is
// missing. Archives ending in .gz are decompressed; .tgz and .tar.gz
// archives yield their first regular file with the same extension as path.
func EnsureFile(ctx context.Context, client *http.Client, path, rawURL string, logger *zap.Logger) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if rawURL == "" {
		return fmt.Errorf("%s not found and no download url configured", path)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		client = http.DefaultClient
	}

	logger.Info("downloading data file", zap.String("path", path), zap.String("url", rawURL))
	if err := download(ctx, client, path, rawURL); err != nil {
		return fmt.Errorf("download %s: %w", rawURL, err)
	}
	return nil
}

func download(ctx context.Context, client *http.Client, destPath, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: %s", resp.Status)
	}

	var src io.Reader = resp.Body
	name := strings.ToLower(u.Path)
	switch {
	case strings.HasSuffix(name, ".tgz") || strings.HasSuffix(name, ".tar.gz"):
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		src, err = findInTar(tar.NewReader(gz), filepath.Ext(destPath))
		if err != nil {
			return err
		}
	case strings.HasSuffix(name, ".gz"):
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		src = gz
	}

	return writeAtomic(destPath, io.LimitReader(src, maxDownloadSize))
}

// findInTar advances tr to the first regular file ending in ext.
func findInTar(tr *tar.Reader, ext string) (io.Reader, error) {
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("no %s file found in downloaded archive", ext)
		}
		if err != nil {
			return nil, fmt.Errorf("error reading tar archive: %w", err)
		}
		if header.Typeflag == tar.TypeReg && strings.HasSuffix(header.Name, ext) {
			return tr, nil
		}
	}
}

// writeAtomic writes r to a temporary file next to path and renames it
// into place. A failed copy leaves nothing at path.
func writeAtomic(path string, r io.Reader) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write to file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
