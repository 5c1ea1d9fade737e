package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/datasweeper/internal/admin"
	"github.com/JonMunkholm/datasweeper/internal/audit"
	"github.com/JonMunkholm/datasweeper/internal/config"
	"github.com/JonMunkholm/datasweeper/internal/core"
	"github.com/JonMunkholm/datasweeper/internal/logging"
	"github.com/JonMunkholm/datasweeper/internal/metrics"
	"github.com/JonMunkholm/datasweeper/internal/web"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type serveOptions struct {
	host string
	port int
}

func newRootCmd() *cobra.Command {
	opts := &serveOptions{}

	root := &cobra.Command{
		Use:           "datasweeper",
		Short:         "Browser-based CSV and Excel cleaning and conversion",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts, cmd)
		},
	}
	addServeFlags(root, opts)

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts, cmd)
		},
	}
	addServeFlags(serve, opts)

	root.AddCommand(serve, newVersionCmd(), newAuditCmd())
	return root
}

func addServeFlags(cmd *cobra.Command, opts *serveOptions) {
	cmd.Flags().StringVar(&opts.host, "host", "", "interface to bind (overrides SERVER_HOST)")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "port to listen on (overrides SERVER_PORT)")
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "datasweeper %s (%s)\n", version, runtime.Version())
		},
	}
}

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Maintain the audit event table",
	}

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete audit events older than --older-than",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMaintenance(cmd.Context(), func(ctx context.Context, m *admin.Maintenance) error {
				n, err := m.Prune(ctx, olderThan)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d events\n", n)
				return nil
			})
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "age of the oldest event to keep")

	var confirm bool
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Delete every audit event",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return errors.New("refusing to reset without --yes")
			}
			return withMaintenance(cmd.Context(), func(ctx context.Context, m *admin.Maintenance) error {
				return m.Reset(ctx)
			})
		},
	}
	reset.Flags().BoolVar(&confirm, "yes", false, "confirm the reset")

	cmd.AddCommand(prune, reset)
	return cmd
}

// withMaintenance connects to the configured audit database and runs fn.
func withMaintenance(ctx context.Context, fn func(context.Context, *admin.Maintenance) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if !cfg.Audit.Enabled() {
		return errors.New("no audit database configured: set AUDIT_DATABASE_URL or DATABASE_URL")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	pool, err := audit.Connect(ctx, cfg.Audit.DatabaseURL, cfg.Audit.MaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, admin.NewMaintenance(pool))
}

func runServe(parent context.Context, opts *serveOptions, cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = opts.host
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = opts.port
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String(), "version", version)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recorder, closeAudit, err := newRecorder(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeAudit()

	var collector *metrics.Collector
	var observer core.Observer
	if cfg.Metrics.Enabled {
		collector = metrics.New()
		observer = collector
	}

	service := core.NewService(core.ServiceConfig{
		SessionTTL:          cfg.Session.TTL,
		MaxConcurrentPasses: cfg.Pass.MaxConcurrent,
		MaxPassWait:         cfg.Pass.MaxWait,
		PreviewRows:         cfg.Pass.PreviewRows,
	}, recorder, observer)

	go service.StartSessionSweeper(ctx, cfg.Session.SweepInterval)

	server := web.NewServer(cfg, service, collector)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if status := service.LimiterStatus(); status.Active > 0 {
		slog.Info("waiting for passes to complete", "active", status.Active)
		if err := service.WaitForPasses(shutdownCtx); err != nil {
			slog.Warn("passes did not complete in time", "error", err)
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("server stopped")
	return <-errCh
}

// newRecorder always logs audit events, and also stores them in PostgreSQL
// when a database is configured.
func newRecorder(ctx context.Context, cfg *config.Config) (audit.Recorder, func(), error) {
	logRecorder := audit.NewLogRecorder(slog.Default())
	if !cfg.Audit.Enabled() {
		return logRecorder, func() {}, nil
	}

	pool, err := audit.Connect(ctx, cfg.Audit.DatabaseURL, cfg.Audit.MaxConns)
	if err != nil {
		return nil, nil, err
	}
	pg := audit.NewPgRecorder(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	slog.Info("audit events stored in database", "max_conns", cfg.Audit.MaxConns)
	return audit.Multi{logRecorder, pg}, pool.Close, nil
}
