package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/adapter"
	"github.com/amishk599/jobscout/internal/config"
	"github.com/amishk599/jobscout/internal/filter"
	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/normalize"
	"github.com/amishk599/jobscout/internal/notifier"
	"github.com/amishk599/jobscout/internal/pipeline"
	"github.com/amishk599/jobscout/internal/ratelimit"
	"github.com/amishk599/jobscout/internal/retry"
	"github.com/amishk599/jobscout/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobscout",
	Short: "Job posting aggregator with Telegram alerts",
	Long:  "jobscout pulls listings from Adzuna, JSearch and GetOnBoard, keeps the relevant ones and sends new matches to Telegram.",
	// A .env file is optional; values already in the environment win.
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
	// Default to `start` so that `jobscout` with no args runs the daemon.
	RunE: runStart,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBSCOUT_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBSCOUT_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("JOBSCOUT_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

// mustLoadConfig loads the config or exits, logging every warning it carries.
func mustLoadConfig(logger *slog.Logger) *config.Config {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}
	return cfg
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	n := cfg.Notification
	switch n.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(n.WebhookURL, n.MaxPerRun, httpClient, logger)
	case "log":
		return notifier.NewLogNotifier(n.MaxPerRun, logger)
	default:
		logger.Info("using telegram notifier")
		return notifier.NewTelegramNotifier(n.BotToken, n.ChatID, n.MaxPerRun, httpClient, logger)
	}
}

func setupFilter(cfg *config.Config) *filter.KeywordFilter {
	return filter.NewKeywordFilter(
		cfg.Filters.TargetKeywords,
		cfg.Filters.ExcludeKeywords,
		cfg.Filters.ExceptionKeywords,
	)
}

func openStore(ctx context.Context, cfg *config.Config) (model.ListingStore, error) {
	switch cfg.Database.Driver {
	case "postgres":
		return store.NewPostgresStore(ctx, cfg.Database.URL, cfg.Database.ConflictPolicy)
	case "sqlite":
		return store.NewSQLiteStore(cfg.Database.Path, cfg.Database.ConflictPolicy)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// createSource builds the bare adapter for a named vendor.
func createSource(cfg *config.Config, name string, normalizer *normalize.Normalizer, limiter *ratelimit.SourceRateLimiter, httpClient *http.Client) (model.Source, bool) {
	s := cfg.Sources
	switch name {
	case model.SourceAdzuna:
		return adapter.NewAdzunaAdapter(adapter.AdzunaOptions{
			AppID:          s.Adzuna.AppID,
			APIKey:         s.Adzuna.APIKey,
			Country:        s.Adzuna.Country,
			MaxDaysOld:     s.Adzuna.MaxDaysOld,
			ResultsPerPage: s.Adzuna.ResultsPerPage,
			MaxPages:       s.Adzuna.MaxPages,
			PageWait:       limiter.Waiter(model.SourceAdzuna),
		}, normalizer, httpClient), s.Adzuna.Enabled
	case model.SourceJSearch:
		return adapter.NewJSearchAdapter(adapter.JSearchOptions{
			APIKey:   s.JSearch.APIKey,
			Country:  s.JSearch.Country,
			NumPages: s.JSearch.NumPages,
		}, normalizer, httpClient), s.JSearch.Enabled
	case model.SourceGetOnBoard:
		return adapter.NewGetOnBoardAdapter(adapter.GetOnBoardOptions{
			CountryCode: s.GetOnBoard.CountryCode,
			PerPage:     s.GetOnBoard.PerPage,
		}, normalizer, httpClient), s.GetOnBoard.Enabled
	default:
		return nil, false
	}
}

var sourceNames = []string{model.SourceAdzuna, model.SourceJSearch, model.SourceGetOnBoard}

// buildQueries returns every enabled source wrapped with rate limiting and
// retries, paired with its search criteria.
func buildQueries(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) []pipeline.Query {
	normalizer := normalize.New(logger)
	limiter := ratelimit.NewSourceRateLimiter(cfg.RateLimit.MinDelay, cfg.RateLimit.SourceOverrides)
	logger.Info("rate limiter configured", "min_delay", cfg.RateLimit.MinDelay.String())

	var queries []pipeline.Query
	for _, name := range sourceNames {
		src, enabled := createSource(cfg, name, normalizer, limiter, httpClient)
		if !enabled {
			logger.Info("source disabled", "source", name)
			continue
		}

		src = ratelimit.NewRateLimitedSource(src, limiter)
		src = retry.NewRetrySource(src, cfg.Retry.MaxRetries, cfg.Retry.BaseDelay, logger)

		criteria := cfg.Criteria(name)
		queries = append(queries, pipeline.Query{Source: src, Criteria: criteria})
		logger.Info("registered source", "source", name, "query", criteria.Query, "location", criteria.Location)
	}
	return queries
}

func buildPipeline(cfg *config.Config, listingStore model.ListingStore, n model.Notifier, httpClient *http.Client, logger *slog.Logger) *pipeline.Pipeline {
	return pipeline.New(
		buildQueries(cfg, httpClient, logger),
		setupFilter(cfg),
		listingStore,
		n,
		pipeline.Options{NotifyWhenEmpty: cfg.Notification.NotifyWhenEmpty},
		logger,
	)
}
