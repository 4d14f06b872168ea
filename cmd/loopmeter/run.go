package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/loopmeter/loopmeter/internal/alerts"
	"github.com/loopmeter/loopmeter/internal/config"
	"github.com/loopmeter/loopmeter/internal/logger"
	"github.com/loopmeter/loopmeter/internal/monitor"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the monitoring agent in foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForeground()
		},
	}
}

// runForeground starts the monitor and (optionally) the alert notifier and
// blocks until SIGINT/SIGTERM.
func runForeground() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := logger.ParseLevel(cfg.Logging.Level)
	if debug {
		level = logger.LevelDebug
	}
	logger.Init(level, cfg.Logging.File)
	defer logger.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mon := newMonitorFromConfig(cfg)
	if err := mon.Start(ctx); err != nil {
		return fmt.Errorf("start monitor: %w", err)
	}
	defer mon.Stop()

	logger.Info("monitor started",
		"interval", cfg.Monitor.SampleInterval,
		"history_size", cfg.Monitor.HistorySize,
		"resolution", cfg.Monitor.Resolution)

	var notifier *alerts.Notifier
	if cfg.Alerts.Enabled {
		opts := []alerts.NotifierOption{
			alerts.WithThresholds(cfg.Health.Thresholds()),
			alerts.WithCooldown(cfg.Alerts.Cooldown),
			alerts.WithPollInterval(cfg.Alerts.PollInterval),
			alerts.WithSink(alerts.LogSink{}),
		}
		if cfg.Alerts.WebhookURL != "" {
			opts = append(opts, alerts.WithSink(
				alerts.NewWebhookSink(alerts.DefaultWebhookConfig(cfg.Alerts.WebhookURL))))
		}
		notifier, err = alerts.NewNotifier(mon, opts...)
		if err != nil {
			return fmt.Errorf("create alert notifier: %w", err)
		}
		if err := notifier.Start(ctx); err != nil {
			return fmt.Errorf("start alert notifier: %w", err)
		}
		defer notifier.Stop()
	}

	// Periodic health summary in the log.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h := mon.Health()
				logger.Info("health summary",
					"status", h.Status,
					"score", h.Score,
					"message", h.Message)
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())
	return nil
}

func newMonitorFromConfig(cfg *config.Config) *monitor.Monitor {
	return monitor.New(
		monitor.WithSampleInterval(cfg.Monitor.SampleInterval),
		monitor.WithHistorySize(cfg.Monitor.HistorySize),
		monitor.WithResolution(cfg.Monitor.Resolution),
		monitor.WithThresholds(cfg.Health.Thresholds()),
	)
}
