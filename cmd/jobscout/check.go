package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/adapter"
	"github.com/amishk599/jobscout/internal/notifier"
	"github.com/amishk599/jobscout/internal/store"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run once, print matches, exit",
	Long:  "One-shot run against an in-memory store: fetches every enabled source and logs the matches. Nothing is persisted or sent.",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	cfg := mustLoadConfig(logger)

	logger.Info("check mode: nothing will be persisted or sent")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	memStore := store.NewMemoryStore(cfg.Database.ConflictPolicy)
	defer memStore.Close()

	httpClient := adapter.NewHTTPClient()
	n := notifier.NewLogNotifier(cfg.Notification.MaxPerRun, logger)
	p := buildPipeline(cfg, memStore, n, httpClient, logger)

	if _, err := p.Run(ctx); err != nil {
		logger.Error("check failed", "error", err)
		os.Exit(1)
	}

	logger.Info("check complete")
	return nil
}
