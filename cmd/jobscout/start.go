package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/adapter"
	"github.com/amishk599/jobscout/internal/lock"
	"github.com/amishk599/jobscout/internal/scheduler"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scheduler daemon",
	Long:  "Runs one aggregation cycle immediately, then on the configured cron schedule; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	cfg := mustLoadConfig(logger)

	logger.Info("config loaded",
		"schedule", cfg.Schedule,
		"database", cfg.Database.Driver,
		"notifier", cfg.Notification.Type,
		"target_keywords", len(cfg.Filters.TargetKeywords),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listingStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer listingStore.Close()

	httpClient := adapter.NewHTTPClient()
	p := buildPipeline(cfg, listingStore, setupNotifier(cfg, httpClient, logger), httpClient, logger)

	var locker scheduler.Locker
	if cfg.Lock.RedisURL != "" {
		rl, err := lock.Dial(ctx, cfg.Lock.RedisURL, cfg.Lock.TTL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rl.Close()
		locker = rl
		logger.Info("run lock enabled", "key", lock.DefaultKey, "ttl", cfg.Lock.TTL.String())
	}

	sched, err := scheduler.New(p, cfg.Schedule, locker, logger)
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}
