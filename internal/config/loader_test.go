package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/scholarsync/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StorageDriver, convey.ShouldEqual, config.StorageMemory)
			convey.So(cfg.Normalizer, convey.ShouldEqual, config.NormalizerPassThrough)
			convey.So(cfg.Scorer, convey.ShouldEqual, config.ScorerHeuristic)
			convey.So(cfg.MatchTopK, convey.ShouldEqual, 10)
			convey.So(cfg.MatchThreshold, convey.ShouldEqual, 30)
			convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "scholarsync")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.CrawlSchedule, convey.ShouldEqual, "@every 6h")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SCHOLARSYNC_ADDR", ":8080")
			_ = os.Setenv("SCHOLARSYNC_QUEUE_SIZE", "50")
			_ = os.Setenv("SCHOLARSYNC_WORKER_COUNT", "3")
			_ = os.Setenv("SCHOLARSYNC_CRAWL_START_URLS", "https://a.example/list, https://b.example/list")
			_ = os.Setenv("SCHOLARSYNC_TEXTGEN_RPS", "2.5")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 50)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.TextgenRPS, convey.ShouldEqual, 2.5)
				convey.So(cfg.CrawlStartURLs, convey.ShouldResemble, []string{"https://a.example/list", "https://b.example/list"})
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
storage_driver: postgres
database_url: "postgres://localhost/scholarsync"
crawl_max_pages: 20
crawl_feed_urls:
  - https://opportunitydesk.org/feed/
match_top_k: 5
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SCHOLARSYNC_CONFIG", tmpFile)
			_ = os.Setenv("SCHOLARSYNC_MATCH_TOP_K", "7")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values load and env values win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.StorageDriver, convey.ShouldEqual, config.StoragePostgres)
				convey.So(cfg.CrawlMaxPages, convey.ShouldEqual, 20)
				convey.So(cfg.CrawlFeedURLs, convey.ShouldResemble, []string{"https://opportunitydesk.org/feed/"})
				convey.So(cfg.MatchTopK, convey.ShouldEqual, 7)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("SCHOLARSYNC_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should fail with a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When numeric env values are malformed", func() {
			_ = os.Setenv("SCHOLARSYNC_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigValidate(t *testing.T) {
	convey.Convey("Given invalid configurations", t, func() {
		cases := map[string]func(c *config.Config){
			"empty addr":               func(c *config.Config) { c.Addr = "" },
			"unknown storage":          func(c *config.Config) { c.StorageDriver = "sqlite" },
			"postgres without url":     func(c *config.Config) { c.StorageDriver = config.StoragePostgres },
			"gemini without key":       func(c *config.Config) { c.TextgenProvider = config.TextgenGemini },
			"live scorer without llm":  func(c *config.Config) { c.Scorer = config.ScorerLive },
			"unknown normalizer":       func(c *config.Config) { c.Normalizer = "magic" },
			"threshold above 100":      func(c *config.Config) { c.MatchThreshold = 101 },
			"non-positive suggestions": func(c *config.Config) { c.MatchTopK = 0 },
			"empty metrics namespace":  func(c *config.Config) { c.MetricsNamespace = "" },
		}

		for name, mutate := range cases {
			cfg := config.New()
			mutate(cfg)

			convey.Convey("Then "+name+" is rejected", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}

		convey.Convey("Then a live setup with a key is accepted", func() {
			cfg := config.New()
			cfg.TextgenProvider = config.TextgenGemini
			cfg.GeminiAPIKey = "k"
			cfg.Normalizer = config.NormalizerLive
			cfg.Scorer = config.ScorerLive
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func clearConfigEnvVars() {
	envVars := []string{
		"SCHOLARSYNC_CONFIG",
		"SCHOLARSYNC_ADDR",
		"SCHOLARSYNC_QUEUE_SIZE",
		"SCHOLARSYNC_WORKER_COUNT",
		"SCHOLARSYNC_CRAWL_START_URLS",
		"SCHOLARSYNC_TEXTGEN_RPS",
		"SCHOLARSYNC_MATCH_TOP_K",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "scholarsync-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
