// Command tristore-mcp is an MCP server that exposes a tristore triple index
// to MCP clients, loading facts from triple files and/or a SQLite snapshot.
//
// Usage:
//
//	tristore-mcp [flags] [root...]
//
// Flags:
//
//	--config       YAML config file (load, store, log, watch, metrics sections)
//	--db           SQLite snapshot to restore on start
//	--watch        reload when triple files change
//	--metrics-addr listen address for Prometheus /metrics
//
// The server communicates over stdio using newline-delimited JSON-RPC
// (the MCP stdio transport). Logs go to stderr to keep stdout clean.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/matthewjhunter/tristore"
	"github.com/matthewjhunter/tristore/config"
	"github.com/matthewjhunter/tristore/mcpserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

const version = "0.1.0"

type options struct {
	configPath  string
	dbPath      string
	logLevel    string
	watch       bool
	metricsAddr string
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "tristore-mcp [root...]",
		Short:         "MCP server over a tristore triple index",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(opts, args)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "config file path (YAML)")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "SQLite snapshot to restore on start")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "reload when triple files change")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "listen address for Prometheus /metrics")
	return cmd
}

// buildConfig layers flags and positional roots over the config file.
func buildConfig(opts options, roots []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.configPath != "" {
		c, err := config.LoadFromFile(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	if len(roots) > 0 {
		cfg.Load.Files = roots
	}
	if opts.dbPath != "" {
		cfg.Store.DB = opts.dbPath
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.watch {
		cfg.Watch.Enabled = true
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Addr = opts.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := cfg.Log.NewLogger(os.Stderr)

	reg := prometheus.NewRegistry()
	metrics, err := tristore.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	idx := tristore.NewTripleIndex(tristore.WithLogger(logger), tristore.WithObserver(metrics))
	if err := tristore.RegisterIndexGauges(reg, idx); err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}
	loaderOpts := []tristore.LoaderOption{
		tristore.WithLoaderLogger(logger),
		tristore.WithLoaderObserver(metrics),
	}
	if cfg.Store.DB != "" {
		// Reloads start from the snapshot, not from an empty index.
		loaderOpts = append(loaderOpts, tristore.WithSeed(func(ctx context.Context, fresh *tristore.TripleIndex) error {
			return restore(ctx, cfg.Store.DB, fresh)
		}))
	}
	loader := tristore.NewLoader(idx, loaderOpts...)

	if cfg.Store.DB != "" {
		if err := restore(ctx, cfg.Store.DB, idx); err != nil {
			return err
		}
	}
	if cfg.Load.Files != nil {
		if _, err := loader.Load(ctx, cfg.Load); err != nil {
			return err
		}
	}

	if cfg.Watch.Enabled {
		w, err := tristore.NewWatcher(loader, cfg.Load,
			tristore.WithDebounce(cfg.Watch.Debounce),
			tristore.WithWatchLogger(logger),
		)
		if err != nil {
			return err
		}
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Error("watcher stopped", "error", err)
			}
		}()
	}

	if cfg.Metrics.Addr != "" {
		go serveMetrics(ctx, cfg.Metrics.Addr, reg, logger)
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "tristore",
		Version: version,
	}, nil)
	mcpserver.NewTripleServer(loader, cfg.Load).Register(server)

	logger.Info("tristore-mcp starting", "facts", idx.Len(), "db", cfg.Store.DB, "roots", cfg.Load.Files)

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func restore(ctx context.Context, path string, idx *tristore.TripleIndex) error {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	store, err := tristore.NewSQLiteStore(db)
	if err != nil {
		return fmt.Errorf("initializing store: %w", err)
	}
	if _, err := store.Restore(ctx, idx); err != nil {
		return err
	}
	return nil
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server stopped", "error", err)
	}
}
