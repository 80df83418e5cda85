package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/adapter"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one aggregation cycle and exit",
	Long:  "Fetches every enabled source once, saves matches to the configured store and sends the digest.",
	RunE:  runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	cfg := mustLoadConfig(logger)

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

	if _, err := p.Run(ctx); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
	return nil
}
