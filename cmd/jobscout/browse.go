package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/adapter"
	"github.com/amishk599/jobscout/internal/browse"
	"github.com/amishk599/jobscout/internal/config"
	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/pipeline"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse listings interactively (TUI)",
	Long:  "Shows the source picker, fetches the chosen source and launches the split-pane listing view.",
	RunE:  runBrowseCmd,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowseCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Log output corrupts the alt-screen, so the TUI runs with a silent logger.
	silentLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runBrowse(cfg, buildQueries(cfg, adapter.NewHTTPClient(), silentLogger))
	return nil
}

func runBrowse(cfg *config.Config, queries []pipeline.Query) {
	if len(queries) == 0 {
		fmt.Println("No enabled sources in config.")
		return
	}

	choices := make([]browse.SourceChoice, len(queries))
	for i, q := range queries {
		choices[i] = browse.SourceChoice{Name: q.Source.Name(), Query: q.Criteria.Query}
	}
	listingFilter := setupFilter(cfg)

	for {
		choice, err := browse.RunSourcePicker(choices)
		if err != nil {
			fmt.Printf("Picker error: %v\n", err)
			return
		}
		if choice < 0 {
			return
		}
		q := queries[choice]

		res, err := browse.RunLoader(q.Source.Name(), func(ctx context.Context) model.FetchResult {
			return q.Source.Fetch(ctx, q.Criteria)
		})
		if errors.Is(err, browse.ErrCancelled) {
			continue
		}
		if err != nil {
			fmt.Printf("Loader error: %v\n", err)
			return
		}
		if !res.OK() {
			fmt.Printf("Error fetching %s: %v\n", q.Source.Name(), res.Err)
			continue
		}
		if res.Reason != "" {
			fmt.Printf("%s returned nothing: %s\n", q.Source.Name(), res.Reason)
			continue
		}

		wantQuit, err := browse.Run(q.Source.Name(), res.Listings, listingFilter.Filter(res.Listings))
		if err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
		if wantQuit {
			return
		}
	}
}
