package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// maxResponseSize bounds JSON bodies read from external sources.
const maxResponseSize = 5 * 1024 * 1024

// Fetcher performs paced, time-limited JSON GET requests for one adapter.
type Fetcher struct {
	Client    *http.Client
	Timeout   time.Duration
	UserAgent string
	Pacer     *Pacer
	Metrics   *Metrics
	Adapter   string
}

// GetJSON fetches rawURL and decodes the body into v. Transport failures
// and non-2xx statuses yield *NetworkError; undecodable bodies yield
// *MalformedResponseError.
func (f *Fetcher) GetJSON(ctx context.Context, rawURL, accept string, v interface{}) error {
	if err := f.Pacer.Wait(ctx); err != nil {
		return err
	}
	defer f.Pacer.Done()
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	req.Header.Set("Accept", accept)

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		f.Metrics.request(f.Adapter, "error", time.Since(start))
		return &NetworkError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	f.Metrics.request(f.Adapter, strconv.Itoa(resp.StatusCode), time.Since(start))
	if err != nil {
		return &NetworkError{URL: rawURL, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &NetworkError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &MalformedResponseError{URL: rawURL, Err: err}
	}
	return nil
}
