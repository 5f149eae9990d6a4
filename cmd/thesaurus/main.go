// Command thesaurus maintains the archival search thesaurus: it syncs
// terms from external sources, expands queries and exports synonym files.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/japaniel/thesaurus/pkg/config"
	"github.com/japaniel/thesaurus/pkg/db"
	"github.com/japaniel/thesaurus/pkg/ingest"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := &app{}
	err := a.rootCmd().ExecuteContext(ctx)
	// close runs after failed commands too, which skip PersistentPostRunE.
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds what every command shares. It is filled in by the root
// command's PersistentPreRunE and released by close once the command
// returns.
type app struct {
	configPath  string
	dbPath      string
	metricsFile string
	jsonOutput  bool

	cfg      *config.Config
	logger   *zap.Logger
	conn     *sql.DB
	client   *http.Client
	registry *prometheus.Registry
	metrics  *ingest.Metrics
	out      io.Writer
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thesaurus",
		Short: "Thesaurus-driven query expansion for archival search",
		Long: `thesaurus keeps a store of terms and weighted synonym relations,
synchronizes it from a lexical API and a knowledge graph, expands search
queries with it and exports Elasticsearch synonym files.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "thesaurus.yaml", "Config file path (YAML, optional)")
	cmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "Path to SQLite database (overrides config)")
	cmd.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
	cmd.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "Print results as JSON")

	cmd.AddCommand(
		a.statsCmd(),
		a.syncCmd(),
		a.importLocalCmd(),
		a.exportCmd(),
		a.searchCmd(),
		a.expandCmd(),
		a.queryCmd(),
		a.suggestCmd(),
		a.deactivateCmd(),
		a.logsCmd(),
		a.configCmd(),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	a.out = cmd.OutOrStdout()

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DatabasePath = a.dbPath
	}
	a.cfg = cfg

	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	a.logger = logger

	if cmd.Name() == "config" {
		return nil
	}

	conn, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.conn = conn
	a.logger.Debug("database ready", zap.String("path", cfg.DatabasePath))

	a.registry = prometheus.NewRegistry()
	a.metrics = ingest.NewMetrics(a.registry)
	return nil
}

func (a *app) close() error {
	var firstErr error
	if a.metricsFile != "" && a.registry != nil {
		if err := prometheus.WriteToTextfile(a.metricsFile, a.registry); err != nil {
			firstErr = fmt.Errorf("write metrics: %w", err)
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return firstErr
}

// httpClient is shared by the sync adapters, which apply their own
// per-request timeouts.
func (a *app) httpClient() *http.Client {
	if a.client == nil {
		a.client = &http.Client{}
	}
	return a.client
}

// newLogger builds a zap logger writing to stderr so that stdout carries
// only command output.
func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, &config.ConfigurationError{Field: "log_level", Reason: "unknown level", Err: err}
	}

	var enc zapcore.Encoder
	switch strings.ToLower(format) {
	case "json":
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(encCfg)
	case "", "console":
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, &config.ConfigurationError{Field: "log_format", Reason: "must be console or json"}
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), zap.NewAtomicLevelAt(lvl))
	return zap.New(core, zap.AddCaller()), nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
