// Command crawl runs one crawl, waits for every fetched page to be
// ingested and exits.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	app "github.com/okian/scholarsync/internal/app"
	"github.com/okian/scholarsync/internal/config"
	"github.com/okian/scholarsync/pkg/logger"
)

const defaultTimeout = 2 * time.Hour

func main() {
	os.Exit(run())
}

func run() int {
	var (
		timeout  = flag.Duration("timeout", defaultTimeout, "Upper bound for the whole run")
		maxPages = flag.Int("max-pages", -1, "Override crawl_max_pages (0 = unbounded)")
	)
	flag.Parse()

	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get().Named("crawl")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Error(ctx, "failed to load config", logger.Error(err))
		return 1
	}
	_ = logger.SetFormat(cfg.LogFormat)
	_ = logger.SetLevelString(cfg.LogLevel)

	cfg.CrawlSchedule = ""
	if *maxPages >= 0 {
		cfg.CrawlMaxPages = *maxPages
	}

	svc := app.New(cfg, app.WithLogger(log))
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return 1
	}

	report, err := svc.RunCrawl(ctx)
	// Stop drains the queue, so outcomes are final afterwards.
	svc.Stop()

	outcomes := svc.Outcomes()
	fields := []logger.Field{
		logger.Int64("pages", report.Pages),
		logger.Int64("seen_skipped", report.SeenSkipped),
		logger.Int64("errors", report.Errors),
	}
	for outcome, n := range outcomes {
		fields = append(fields, logger.Int(string(outcome), n))
	}
	if err != nil {
		log.Error(ctx, "crawl ended early", append(fields, logger.Error(err))...)
		return 1
	}
	log.Info(ctx, "crawl complete", fields...)
	return 0
}
