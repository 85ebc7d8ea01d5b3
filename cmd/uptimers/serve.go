package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimers/internal/httpapi"
	"github.com/hamed0406/uptimers/internal/logging"
	"github.com/hamed0406/uptimers/internal/notify"
	"github.com/hamed0406/uptimers/internal/page"
	"github.com/hamed0406/uptimers/internal/probe"
	"github.com/hamed0406/uptimers/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the monitor and serve the status page",
	Long: `Load the site list, connect storage, then run the check cycle in the
background and serve the latest status page on ADDR.

Stops on SIGINT or SIGTERM: the cycle loop exits before its next run and the
HTTP server drains in-flight requests.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, sites, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.NewLogger(logging.Options{Dir: cfg.LogDir, Level: cfg.LogLevel, Console: cfg.LogConsole})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("config_loaded",
		zap.Int("sites", len(sites)),
		zap.String("store", cfg.Store),
		zap.Duration("interval", cfg.CheckInterval),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	notifier, err := notify.New(cfg.NotifyURL, cfg.SlackWebhook)
	if err != nil {
		return fmt.Errorf("notifier: %w", err)
	}

	prober := probe.NewRetryChecker(
		probe.NewHTTPChecker(cfg.ProbeTimeout),
		probe.RetryPolicy{MaxAttempts: cfg.RetryAttempts, BackoffUnit: cfg.RetryBackoff},
		logger,
	)
	snap := page.NewSnapshot()
	publisher := page.NewPublisher(store, sites, snap, logger)
	rc := scheduler.NewRechecker(logger, sites, prober,
		scheduler.NewAlerter(store, notifier, logger),
		store, publisher,
		scheduler.RecheckerConfig{
			Interval:           cfg.CheckInterval,
			ProbeConcurrency:   cfg.ProbeConcurrency,
			PersistConcurrency: cfg.PersistConcurrency,
		},
	)

	cycleDone := make(chan struct{})
	go func() {
		defer close(cycleDone)
		rc.Run(ctx)
	}()

	api := httpapi.NewServer(logger, snap, httpapi.Options{PublicRPM: cfg.PublicRPM, PublicBurst: cfg.PublicBurst})
	errChan := make(chan error, 1)
	go func() {
		errChan <- api.ListenAndServe(cfg.Addr)
	}()

	select {
	case err := <-errChan:
		stop()
		<-cycleDone
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown_started")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := api.Shutdown(sctx); err != nil {
		logger.Warn("http_shutdown_failed", zap.Error(err))
	}
	select {
	case <-cycleDone:
		logger.Info("shutdown_complete")
	case <-sctx.Done():
		logger.Warn("shutdown_timed_out", zap.Duration("timeout", shutdownTimeout))
	}
	return nil
}
