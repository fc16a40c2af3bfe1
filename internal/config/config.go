// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New returns a Config populated with defaults.
// - Load layers a YAML file and SCHOLARSYNC_* env vars over those defaults.
// - Validate is called by Load; callers building a Config by hand should call it too.
package config

import (
	"fmt"
	"runtime"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Normalizer and scorer implementations.
const (
	NormalizerPassThrough = "passthrough"
	NormalizerLive        = "live"
	ScorerHeuristic       = "heuristic"
	ScorerLive            = "live"
	TextgenNone           = "none"
	TextgenGemini         = "gemini"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// MetricsNamespace prefixes every exported metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	// MetricsEnv, when set, is attached to every metric as an env label.
	MetricsEnv string `koanf:"metrics_env"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StorageDriver selects the record pool backend: memory or postgres.
	StorageDriver string `koanf:"storage_driver"`
	DatabaseURL   string `koanf:"database_url"`
	// RedisURL enables the shared seen-URL set when non-empty.
	RedisURL string `koanf:"redis_url"`

	// QueueSize bounds the in-memory page queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of ingestion workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize caps the in-memory seen-URL set.
	DedupeSize int `koanf:"dedupe_size"`
	// SeenTTLHours is how long a crawled detail page is skipped on later runs.
	SeenTTLHours int `koanf:"seen_ttl_hours"`
	// UpsertLockStripes is the number of per-source_url lock stripes.
	UpsertLockStripes int `koanf:"upsert_lock_stripes"`

	CrawlStartURLs       []string `koanf:"crawl_start_urls"`
	CrawlFeedURLs        []string `koanf:"crawl_feed_urls"`
	CrawlAllowedDomains  []string `koanf:"crawl_allowed_domains"`
	CrawlMaxPages        int      `koanf:"crawl_max_pages"`
	CrawlMaxDepth        int      `koanf:"crawl_max_depth"`
	CrawlDelayMS         int      `koanf:"crawl_delay_ms"`
	CrawlParallelism     int      `koanf:"crawl_parallelism"`
	CrawlUserAgent       string   `koanf:"crawl_user_agent"`
	CrawlRequestTimeoutS int      `koanf:"crawl_request_timeout_s"`
	// CrawlSchedule is a robfig/cron expression; empty disables periodic crawls.
	CrawlSchedule string `koanf:"crawl_schedule"`
	// SourceWebsite is stamped on every record produced by the crawler.
	SourceWebsite string `koanf:"source_website"`

	TextgenProvider  string  `koanf:"textgen_provider"`
	GeminiAPIKey     string  `koanf:"gemini_api_key"`
	GeminiModel      string  `koanf:"gemini_model"`
	GeminiBaseURL    string  `koanf:"gemini_base_url"`
	TextgenTimeoutMS int     `koanf:"textgen_timeout_ms"`
	TextgenRPS       float64 `koanf:"textgen_rps"`

	Normalizer string `koanf:"normalizer"`
	Scorer     string `koanf:"scorer"`

	// MatchTopK bounds a user's suggestion set.
	MatchTopK int `koanf:"match_top_k"`
	// MatchThreshold is the exclusive minimum score for a suggestion.
	MatchThreshold int `koanf:"match_threshold"`
	// MatchConcurrency bounds in-flight scoring calls per recompute.
	MatchConcurrency int `koanf:"match_concurrency"`
	// ScorerBreakerThreshold is the number of consecutive unavailable
	// errors after which live scoring is abandoned for the run.
	ScorerBreakerThreshold int `koanf:"scorer_breaker_threshold"`

	// MaxScholarshipsLimit caps GET /scholarships?limit.
	MaxScholarshipsLimit int `koanf:"max_scholarships_limit"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		MetricsNamespace:       "scholarsync",
		Addr:                   ":9080",
		StorageDriver:          StorageMemory,
		QueueSize:              1_000,
		WorkerCount:            runtime.NumCPU() * 2,
		DedupeSize:             100_000,
		SeenTTLHours:           24,
		UpsertLockStripes:      64,
		CrawlStartURLs:         []string{"https://opportunitydesk.org/category/fellowships-and-scholarships/"},
		CrawlAllowedDomains:    []string{"opportunitydesk.org"},
		CrawlMaxPages:          200,
		CrawlMaxDepth:          3,
		CrawlDelayMS:           1_000,
		CrawlParallelism:       2,
		CrawlUserAgent:         "scholarsync/1.0 (+https://github.com/okian/scholarsync)",
		CrawlRequestTimeoutS:   30,
		CrawlSchedule:          "@every 6h",
		SourceWebsite:          "opportunitydesk.org",
		TextgenProvider:        TextgenNone,
		GeminiModel:            "gemini-1.5-flash",
		GeminiBaseURL:          "https://generativelanguage.googleapis.com",
		TextgenTimeoutMS:       20_000,
		TextgenRPS:             1,
		Normalizer:             NormalizerPassThrough,
		Scorer:                 ScorerHeuristic,
		MatchTopK:              10,
		MatchThreshold:         30,
		MatchConcurrency:       4,
		ScorerBreakerThreshold: 3,
		MaxScholarshipsLimit:   100,
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MetricsNamespace == "":
		return fmt.Errorf("%w: metrics_namespace must not be empty", ErrInvalidConfig)
	case c.StorageDriver != StorageMemory && c.StorageDriver != StoragePostgres:
		return fmt.Errorf("%w: unknown storage_driver %q", ErrInvalidConfig, c.StorageDriver)
	case c.StorageDriver == StoragePostgres && c.DatabaseURL == "":
		return fmt.Errorf("%w: database_url is required for postgres", ErrInvalidConfig)
	case c.TextgenProvider != TextgenNone && c.TextgenProvider != TextgenGemini:
		return fmt.Errorf("%w: unknown textgen_provider %q", ErrInvalidConfig, c.TextgenProvider)
	case c.TextgenProvider == TextgenGemini && c.GeminiAPIKey == "":
		return fmt.Errorf("%w: gemini_api_key is required for gemini", ErrInvalidConfig)
	case c.Normalizer != NormalizerPassThrough && c.Normalizer != NormalizerLive:
		return fmt.Errorf("%w: unknown normalizer %q", ErrInvalidConfig, c.Normalizer)
	case c.Scorer != ScorerHeuristic && c.Scorer != ScorerLive:
		return fmt.Errorf("%w: unknown scorer %q", ErrInvalidConfig, c.Scorer)
	case (c.Normalizer == NormalizerLive || c.Scorer == ScorerLive) && c.TextgenProvider == TextgenNone:
		return fmt.Errorf("%w: live normalizer or scorer needs a textgen_provider", ErrInvalidConfig)
	case c.MatchTopK <= 0:
		return fmt.Errorf("%w: match_top_k must be positive", ErrInvalidConfig)
	case c.MatchThreshold < 0 || c.MatchThreshold > 100:
		return fmt.Errorf("%w: match_threshold must be within [0,100]", ErrInvalidConfig)
	}
	return nil
}
