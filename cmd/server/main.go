/*
main.go - Application entry point

PURPOSE:
  Starts the LostTrack server and offers the ledger maintenance commands.
  Handles configuration, store selection, dependency injection and
  graceful shutdown.

COMMANDS:
  serve    Run the HTTP API (default when no command is given)
  verify   Check the cash ledger hash chain, exit 1 when broken
  totals   Print IN/OUT/balance for a date range

STARTUP SEQUENCE (serve):
  1. Load config (defaults, YAML, .env, LOSTTRACK_*), apply flags
  2. Open the configured store
  3. Create metrics, service, handler and router
  4. Start the HTTP server; stop on SIGINT/SIGTERM

GLOBAL FLAGS:
  --config     YAML config file (default: losttrack.yaml, optional)
  --store      memory | sqlite | badger | redis
  --path       SQLite file or Badger directory
  --log-level  logrus level

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests (server.shutdownTimeout)
  3. Close the store
  4. Exit

EXAMPLES:
  # Serve from a SQLite file
  ./server serve --store=sqlite --path=./data/losttrack.db

  # Throwaway in-memory instance on another port
  ./server serve --store=memory --port=3000

  # Nightly chain check
  ./server verify --store=badger --path=/var/lib/losttrack

SEE ALSO:
  - config/config.go: Configuration sources
  - api/server.go: Router configuration
  - store.go: Store selection
*/
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Streuli81/LostTrack/api"
	"github.com/Streuli81/LostTrack/config"
	"github.com/Streuli81/LostTrack/generic"
	"github.com/Streuli81/LostTrack/lostitem"
	"github.com/Streuli81/LostTrack/telemetry"
)

// flags holds command-line overrides. Empty or zero means "keep config".
type flags struct {
	configPath string
	driver     string
	path       string
	logLevel   string
	port       int
	from, to   string
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "losttrack:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:           "losttrack",
		Short:         "Lost-and-found case engine with a hash-chained cash ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", "losttrack.yaml", "YAML config file")
	root.PersistentFlags().StringVar(&f.driver, "store", "", "store driver (memory, sqlite, badger, redis)")
	root.PersistentFlags().StringVar(&f.path, "path", "", "SQLite file or Badger directory")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "log level")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), f)
		},
	}
	serve.Flags().IntVar(&f.port, "port", 0, "HTTP server port")

	verify := &cobra.Command{
		Use:   "verify",
		Short: "Verify the cash ledger hash chain",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerify(cmd.Context(), f, cmd.OutOrStdout())
		},
	}

	totals := &cobra.Command{
		Use:   "totals",
		Short: "Print ledger totals for a date range",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTotals(cmd.Context(), f, cmd.OutOrStdout())
		},
	}
	totals.Flags().StringVar(&f.from, "from", "", "first day (YYYY-MM-DD), empty for open")
	totals.Flags().StringVar(&f.to, "to", "", "last day (YYYY-MM-DD), empty for open")

	root.AddCommand(serve, verify, totals)
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())
	return root
}

// =============================================================================
// SETUP
// =============================================================================

// loadConfig reads the configuration and applies the flag overrides.
func loadConfig(f *flags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}
	if f.driver != "" {
		cfg.Store.Driver = f.driver
	}
	if f.path != "" {
		cfg.Store.Path = f.path
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.port != 0 {
		cfg.Server.Port = f.port
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

type app struct {
	cfg     config.Config
	log     *logrus.Logger
	store   closableStore
	metrics *telemetry.Metrics
	service *lostitem.Service
}

func setup(ctx context.Context, f *flags) (*app, error) {
	cfg, err := loadConfig(f)
	if err != nil {
		return nil, err
	}
	log := config.NewLogger(cfg.Log, os.Stderr)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	st, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.New(reg)
	svc := lostitem.New(st,
		lostitem.WithLocation(loc),
		lostitem.WithLogger(log),
		lostitem.WithMetrics(metrics),
	)
	return &app{cfg: cfg, log: log, store: st, metrics: metrics, service: svc}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Error("closing store")
	}
}

// =============================================================================
// COMMANDS
// =============================================================================

func runServe(ctx context.Context, f *flags) error {
	a, err := setup(ctx, f)
	if err != nil {
		return err
	}
	defer a.close()

	handler := api.NewHandler(a.service, a.log)
	router := api.NewRouter(handler, api.RouterOptions{
		CORSOrigins: a.cfg.Server.CORSOrigins,
		Metrics:     a.metrics.Handler(),
	})

	server := &http.Server{
		Addr:         a.cfg.Addr(),
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.WithFields(logrus.Fields{
			"addr":  server.Addr,
			"store": a.cfg.Store.Driver,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		a.log.WithError(err).Error("server stopped with error")
		return err
	}
	a.log.Info("server stopped")
	return nil
}

func runVerify(ctx context.Context, f *flags, out io.Writer) error {
	a, err := setup(ctx, f)
	if err != nil {
		return err
	}
	defer a.close()

	report, err := a.service.VerifyChain(ctx)
	if err != nil {
		return err
	}
	if err := printJSON(out, report); err != nil {
		return err
	}
	return report.Err()
}

func runTotals(ctx context.Context, f *flags, out io.Writer) error {
	a, err := setup(ctx, f)
	if err != nil {
		return err
	}
	defer a.close()

	t, err := a.service.Totals(ctx, f.from, f.to)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "IN       %12s\nOUT      %12s\nBALANCE  %12s\n",
		generic.FormatCents(t.InCents), generic.FormatCents(t.OutCents), generic.FormatCents(t.BalanceCents))
	return err
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
