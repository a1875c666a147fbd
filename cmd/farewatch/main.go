package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jtomic/farewatch/internal/api"
	"github.com/jtomic/farewatch/internal/config"
	"github.com/jtomic/farewatch/internal/notify"
	"github.com/jtomic/farewatch/internal/provider"
	"github.com/jtomic/farewatch/internal/scheduler"
	"github.com/jtomic/farewatch/internal/storage/sqlite"
	"github.com/jtomic/farewatch/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	flag.Parse()

	mode := flag.Arg(0)
	if mode == "" {
		mode = "serve"
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(mode, cfg, log); err != nil {
		log.Error("Fatal error", logger.Error(err))
		os.Exit(1)
	}
}

func run(mode string, cfg *config.Config, log *logger.Logger) error {
	db, err := sqlite.Open(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	alerts, err := sqlite.NewAlertStorage(db, log)
	if err != nil {
		return fmt.Errorf("failed to initialize alert storage: %w", err)
	}
	prices, err := sqlite.NewPriceStorage(db, log)
	if err != nil {
		return fmt.Errorf("failed to initialize price storage: %w", err)
	}

	serp := provider.NewSerpAPIClient(provider.SerpAPIConfig{
		BaseURL:           cfg.Provider.BaseURL,
		APIKey:            cfg.Provider.APIKey,
		Timeout:           time.Duration(cfg.Provider.RequestTimeoutSeconds) * time.Second,
		MaxRetries:        cfg.Provider.MaxRetries,
		RequestsPerSecond: cfg.Provider.RequestsPerSecond,
		RequestBurst:      cfg.Provider.RequestBurst,
	}, log)

	notifier := notify.New(cfg.Email, cfg.SMS, log)
	requestTimeout := time.Duration(cfg.Provider.RequestTimeoutSeconds+10) * time.Second
	sched := scheduler.New(alerts, prices, serp, notifier, requestTimeout, log)

	switch mode {
	case "check":
		return runCheck(sched, log)
	case "serve":
		return runServe(cfg, serp, alerts, prices, sched, log)
	default:
		return fmt.Errorf("unknown mode %q (expected serve or check)", mode)
	}
}

// runCheck performs a single pass over all stored alerts. Per-alert
// failures are reported in the logs, not the exit code, so cron keeps
// running the next pass.
func runCheck(sched *scheduler.Scheduler, log *logger.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	report := sched.RunOnce(ctx)
	log.Info("Alert check pass complete",
		logger.Int("evaluated", report.Evaluated),
		logger.Int("matched", report.Matched),
		logger.Int("retired", report.Retired),
		logger.Int("provider_failures", report.ProviderFailures),
		logger.Int("notify_failures", report.NotifyFailures))
	return nil
}

func runServe(cfg *config.Config, p provider.Provider, alerts *sqlite.AlertStorage, prices *sqlite.PriceStorage, sched *scheduler.Scheduler, log *logger.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	router := api.NewRouter(p, alerts, prices, cfg, log)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	interval := time.Duration(cfg.Scheduler.CheckIntervalMinutes) * time.Minute
	go sched.Start(ctx, interval)

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", logger.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}
