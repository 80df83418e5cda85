package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/amishk599/jobscout/internal/filter"
	"github.com/amishk599/jobscout/internal/model"
)

// Config is the root configuration for jobscout.
type Config struct {
	Schedule     string `validate:"required"`
	Database     DatabaseConfig
	Search       SearchConfig
	Sources      SourcesConfig
	Filters      FilterConfig
	Notification NotificationConfig
	RateLimit    RateLimitConfig
	Retry        RetryConfig
	Lock         LockConfig
}

// DatabaseConfig selects and locates the listing store.
type DatabaseConfig struct {
	Driver         string `validate:"oneof=sqlite postgres"`
	Path           string // sqlite file
	URL            string // postgres connection string
	ConflictPolicy model.ConflictPolicy
}

// SearchConfig holds the default criteria shared by every source.
type SearchConfig struct {
	Query      string `validate:"required"`
	Location   string
	DatePosted string `validate:"omitempty,oneof=all today 3days week month"`
	MinSalary  *float64
}

// SourcesConfig holds per-vendor settings.
type SourcesConfig struct {
	Adzuna     AdzunaConfig
	JSearch    JSearchConfig
	GetOnBoard GetOnBoardConfig
}

// AdzunaConfig configures the Adzuna adapter.
type AdzunaConfig struct {
	Enabled        bool
	AppID          string
	APIKey         string
	Country        string `validate:"required,len=2"`
	MaxDaysOld     int    `validate:"gte=0"`
	ResultsPerPage int    `validate:"gte=1,lte=50"`
	MaxPages       int    `validate:"gte=1,lte=10"`
	Overrides      QueryOverrides
}

// JSearchConfig configures the JSearch adapter.
type JSearchConfig struct {
	Enabled   bool
	APIKey    string
	Country   string
	NumPages  int `validate:"gte=1,lte=20"`
	Overrides QueryOverrides
}

// GetOnBoardConfig configures the GetOnBoard adapter.
type GetOnBoardConfig struct {
	Enabled     bool
	CountryCode string `validate:"required,len=2"`
	PerPage     int    `validate:"gte=1,lte=100"`
	Overrides   QueryOverrides
}

// QueryOverrides replace fields of the shared search for one source.
type QueryOverrides struct {
	Query      string `yaml:"query"`
	Location   string `yaml:"location"`
	DatePosted string `yaml:"date_posted" validate:"omitempty,oneof=all today 3days week month"`
}

// FilterConfig holds the keyword lists of the filter engine.
type FilterConfig struct {
	TargetKeywords    []string
	ExcludeKeywords   []string
	ExceptionKeywords []string
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type            string `validate:"oneof=telegram slack log"`
	BotToken        string
	ChatID          string
	WebhookURL      string `validate:"omitempty,url"`
	MaxPerRun       int    `validate:"gte=1"`
	NotifyWhenEmpty bool
}

// RateLimitConfig controls per-source rate limiting.
type RateLimitConfig struct {
	MinDelay        time.Duration            // minimum gap between requests to the same source
	SourceOverrides map[string]time.Duration // per-source overrides, keyed by source name
}

// MinDelayFor returns the configured delay for the given source, falling back to MinDelay.
func (r RateLimitConfig) MinDelayFor(source string) time.Duration {
	if d, ok := r.SourceOverrides[source]; ok {
		return d
	}
	return r.MinDelay
}

// RetryConfig controls the retry decorator.
type RetryConfig struct {
	MaxRetries int `validate:"gte=0,lte=10"`
	BaseDelay  time.Duration
}

// LockConfig enables the Redis run lock when RedisURL is set.
type LockConfig struct {
	RedisURL string
	TTL      time.Duration
}

// Criteria returns the search criteria for the named source: the shared
// search with that source's overrides applied.
func (c *Config) Criteria(source string) model.SearchCriteria {
	criteria := model.SearchCriteria{
		Query:      c.Search.Query,
		Location:   c.Search.Location,
		DatePosted: c.Search.DatePosted,
		MinSalary:  c.Search.MinSalary,
	}

	var o QueryOverrides
	switch source {
	case model.SourceAdzuna:
		o = c.Sources.Adzuna.Overrides
	case model.SourceJSearch:
		o = c.Sources.JSearch.Overrides
	case model.SourceGetOnBoard:
		o = c.Sources.GetOnBoard.Overrides
	}
	if o.Query != "" {
		criteria.Query = o.Query
	}
	if o.Location != "" {
		criteria.Location = o.Location
	}
	if o.DatePosted != "" {
		criteria.DatePosted = o.DatePosted
	}
	return criteria
}

// Warnings lists non-fatal problems, such as an enabled source or notifier
// whose credentials are missing. Affected components run as no-ops.
func (c *Config) Warnings() []string {
	var w []string
	if c.Sources.Adzuna.Enabled && model.MissingCredential(c.Sources.Adzuna.AppID, c.Sources.Adzuna.APIKey) {
		w = append(w, "sources.adzuna is enabled but app_id/api_key are missing; it will be skipped")
	}
	if c.Sources.JSearch.Enabled && model.MissingCredential(c.Sources.JSearch.APIKey) {
		w = append(w, "sources.jsearch is enabled but api_key is missing; it will be skipped")
	}
	switch c.Notification.Type {
	case "telegram":
		if model.MissingCredential(c.Notification.BotToken, c.Notification.ChatID) {
			w = append(w, "notification.bot_token/chat_id are missing; notifications are disabled")
		}
	case "slack":
		if c.Notification.WebhookURL == "" {
			w = append(w, "notification.webhook_url is missing; notifications are disabled")
		}
	}
	return w
}

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	Schedule     string                `yaml:"schedule"`
	Database     rawDatabaseConfig     `yaml:"database"`
	Search       rawSearchConfig       `yaml:"search"`
	Sources      rawSourcesConfig      `yaml:"sources"`
	Filters      rawFilterConfig       `yaml:"filters"`
	Notification rawNotificationConfig `yaml:"notification"`
	RateLimit    rawRateLimitConfig    `yaml:"rate_limit"`
	Retry        rawRetryConfig        `yaml:"retry"`
	Lock         rawLockConfig         `yaml:"lock"`
}

type rawDatabaseConfig struct {
	Driver         string `yaml:"driver"`
	Path           string `yaml:"path"`
	URL            string `yaml:"url"`
	ConflictPolicy string `yaml:"conflict_policy"`
}

type rawSearchConfig struct {
	Query      string   `yaml:"query"`
	Location   string   `yaml:"location"`
	DatePosted string   `yaml:"date_posted"`
	MinSalary  *float64 `yaml:"min_salary"`
}

type rawSourcesConfig struct {
	Adzuna     rawAdzunaConfig     `yaml:"adzuna"`
	JSearch    rawJSearchConfig    `yaml:"jsearch"`
	GetOnBoard rawGetOnBoardConfig `yaml:"getonboard"`
}

type rawAdzunaConfig struct {
	Enabled        *bool  `yaml:"enabled"`
	AppID          string `yaml:"app_id"`
	APIKey         string `yaml:"api_key"`
	Country        string `yaml:"country"`
	MaxDaysOld     *int   `yaml:"max_days_old"`
	ResultsPerPage int    `yaml:"results_per_page"`
	MaxPages       int    `yaml:"max_pages"`
	QueryOverrides `yaml:",inline"`
}

type rawJSearchConfig struct {
	Enabled        *bool  `yaml:"enabled"`
	APIKey         string `yaml:"api_key"`
	Country        string `yaml:"country"`
	NumPages       int    `yaml:"num_pages"`
	QueryOverrides `yaml:",inline"`
}

type rawGetOnBoardConfig struct {
	Enabled        *bool  `yaml:"enabled"`
	CountryCode    string `yaml:"country_code"`
	PerPage        int    `yaml:"per_page"`
	QueryOverrides `yaml:",inline"`
}

// Nil slices mean "key absent" and select the built-in lists; an explicit
// empty list disables that rule.
type rawFilterConfig struct {
	TargetKeywords    *[]string `yaml:"target_keywords"`
	ExcludeKeywords   *[]string `yaml:"exclude_keywords"`
	ExceptionKeywords *[]string `yaml:"exception_keywords"`
}

type rawNotificationConfig struct {
	Type            string `yaml:"type"`
	BotToken        string `yaml:"bot_token"`
	ChatID          string `yaml:"chat_id"`
	WebhookURL      string `yaml:"webhook_url"`
	MaxPerRun       int    `yaml:"max_per_run"`
	NotifyWhenEmpty bool   `yaml:"notify_when_empty"`
}

type rawRateLimitConfig struct {
	MinDelay        string            `yaml:"min_delay"`
	SourceOverrides map[string]string `yaml:"source_overrides"`
}

type rawRetryConfig struct {
	MaxRetries *int   `yaml:"max_retries"`
	BaseDelay  string `yaml:"base_delay"`
}

type rawLockConfig struct {
	RedisURL string `yaml:"redis_url"`
	TTL      string `yaml:"ttl"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse expands environment variables in data, decodes it and validates
// the result.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg, err := raw.toConfig()
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (raw rawConfig) toConfig() (*Config, error) {
	policy, err := model.ParseConflictPolicy(raw.Database.ConflictPolicy)
	if err != nil {
		return nil, fmt.Errorf("parse database.conflict_policy: %w", err)
	}

	minDelay, err := parseDuration("rate_limit.min_delay", raw.RateLimit.MinDelay, 2*time.Second)
	if err != nil {
		return nil, err
	}
	overrides := make(map[string]time.Duration)
	for source, v := range raw.RateLimit.SourceOverrides {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse rate_limit.source_overrides[%q]: %w", source, err)
		}
		overrides[source] = d
	}

	baseDelay, err := parseDuration("retry.base_delay", raw.Retry.BaseDelay, 5*time.Second)
	if err != nil {
		return nil, err
	}
	lockTTL, err := parseDuration("lock.ttl", raw.Lock.TTL, 30*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Schedule: orDefault(raw.Schedule, "0 23 * * *"),
		Database: DatabaseConfig{
			Driver:         orDefault(raw.Database.Driver, "sqlite"),
			Path:           orDefault(raw.Database.Path, "jobs.db"),
			URL:            raw.Database.URL,
			ConflictPolicy: policy,
		},
		Search: SearchConfig{
			Query:      orDefault(raw.Search.Query, "Data Engineer"),
			Location:   orDefault(raw.Search.Location, "Remote"),
			DatePosted: raw.Search.DatePosted,
			MinSalary:  raw.Search.MinSalary,
		},
		Sources: SourcesConfig{
			Adzuna: AdzunaConfig{
				Enabled:        boolOr(raw.Sources.Adzuna.Enabled, true),
				AppID:          raw.Sources.Adzuna.AppID,
				APIKey:         raw.Sources.Adzuna.APIKey,
				Country:        strings.ToLower(orDefault(raw.Sources.Adzuna.Country, "us")),
				MaxDaysOld:     intOr(raw.Sources.Adzuna.MaxDaysOld, 2),
				ResultsPerPage: positiveOr(raw.Sources.Adzuna.ResultsPerPage, 20),
				MaxPages:       positiveOr(raw.Sources.Adzuna.MaxPages, 1),
				Overrides:      raw.Sources.Adzuna.QueryOverrides,
			},
			JSearch: JSearchConfig{
				Enabled:   boolOr(raw.Sources.JSearch.Enabled, true),
				APIKey:    raw.Sources.JSearch.APIKey,
				Country:   raw.Sources.JSearch.Country,
				NumPages:  positiveOr(raw.Sources.JSearch.NumPages, 2),
				Overrides: raw.Sources.JSearch.QueryOverrides,
			},
			GetOnBoard: GetOnBoardConfig{
				Enabled:     boolOr(raw.Sources.GetOnBoard.Enabled, true),
				CountryCode: strings.ToUpper(orDefault(raw.Sources.GetOnBoard.CountryCode, "CL")),
				PerPage:     positiveOr(raw.Sources.GetOnBoard.PerPage, 10),
				Overrides:   raw.Sources.GetOnBoard.QueryOverrides,
			},
		},
		Filters: FilterConfig{
			TargetKeywords:    listOr(raw.Filters.TargetKeywords, filter.DefaultTargetKeywords),
			ExcludeKeywords:   listOr(raw.Filters.ExcludeKeywords, filter.DefaultExcludeKeywords),
			ExceptionKeywords: listOr(raw.Filters.ExceptionKeywords, filter.DefaultExceptionKeywords),
		},
		Notification: NotificationConfig{
			Type:            orDefault(raw.Notification.Type, "telegram"),
			BotToken:        raw.Notification.BotToken,
			ChatID:          raw.Notification.ChatID,
			WebhookURL:      raw.Notification.WebhookURL,
			MaxPerRun:       positiveOr(raw.Notification.MaxPerRun, 10),
			NotifyWhenEmpty: raw.Notification.NotifyWhenEmpty,
		},
		RateLimit: RateLimitConfig{
			MinDelay:        minDelay,
			SourceOverrides: overrides,
		},
		Retry: RetryConfig{
			MaxRetries: intOr(raw.Retry.MaxRetries, 2),
			BaseDelay:  baseDelay,
		},
		Lock: LockConfig{
			RedisURL: raw.Lock.RedisURL,
			TTL:      lockTTL,
		},
	}
	return cfg, nil
}

var structValidator = validator.New()

func validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return fmt.Errorf("schedule %q is not a valid cron expression: %w", cfg.Schedule, err)
	}

	if cfg.Database.Driver == "postgres" && cfg.Database.URL == "" {
		return fmt.Errorf("database.url is required when driver is \"postgres\"")
	}

	if cfg.Notification.Type == "slack" && cfg.Notification.WebhookURL != "" &&
		!strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
		return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
	}

	if cfg.RateLimit.MinDelay < 0 {
		return fmt.Errorf("rate_limit.min_delay must not be negative, got %v", cfg.RateLimit.MinDelay)
	}
	if cfg.Retry.BaseDelay <= 0 {
		return fmt.Errorf("retry.base_delay must be positive, got %v", cfg.Retry.BaseDelay)
	}

	if !cfg.Sources.Adzuna.Enabled && !cfg.Sources.JSearch.Enabled && !cfg.Sources.GetOnBoard.Enabled {
		return fmt.Errorf("at least one source must be enabled")
	}

	return nil
}

func parseDuration(field, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, value, err)
	}
	return d, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func positiveOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func listOr(v *[]string, def []string) []string {
	if v == nil {
		return append([]string(nil), def...)
	}
	return *v
}
