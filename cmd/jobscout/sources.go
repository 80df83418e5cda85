package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/model"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources",
	Long:  "Reads the config and prints every source with its status and search query.",
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	s := cfg.Sources
	rows := []struct {
		name     string
		enabled  bool
		credsOK  bool
		needsKey bool
	}{
		{model.SourceAdzuna, s.Adzuna.Enabled, !model.MissingCredential(s.Adzuna.AppID, s.Adzuna.APIKey), true},
		{model.SourceJSearch, s.JSearch.Enabled, !model.MissingCredential(s.JSearch.APIKey), true},
		{model.SourceGetOnBoard, s.GetOnBoard.Enabled, true, false},
	}

	fmt.Printf("%-12s %-10s %-13s %s\n", "Source", "Status", "Credentials", "Query")
	fmt.Println(strings.Repeat("─", 60))

	enabled := 0
	for _, r := range rows {
		status := "disabled"
		if r.enabled {
			status = "enabled"
			enabled++
		}
		creds := "not needed"
		if r.needsKey {
			creds = "missing"
			if r.credsOK {
				creds = "ok"
			}
		}
		c := cfg.Criteria(r.name)
		fmt.Printf("%-12s %-10s %-13s %q in %s\n", r.name, status, creds, c.Query, c.Location)
	}

	fmt.Printf("\nTotal: %d sources (%d enabled, %d disabled)\n", len(rows), enabled, len(rows)-enabled)
	return nil
}
