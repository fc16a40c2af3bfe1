// Command export writes the scholarship pool to an .xlsx report,
// optionally crawling first.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/scholarsync/internal/adapters/export"
	"github.com/okian/scholarsync/internal/adapters/repository"
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
		out     = flag.String("out", "", "Output file (default: scholarships_TIMESTAMP.xlsx)")
		crawl   = flag.Bool("crawl", false, "Run one crawl before exporting")
		timeout = flag.Duration("timeout", defaultTimeout, "Upper bound for the whole run")
	)
	flag.Parse()

	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get().Named("export")

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

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Error(ctx, "failed to open store", logger.Error(err))
		return 1
	}
	defer closeStore()

	if *crawl {
		cfg.CrawlSchedule = ""
		svc := app.New(cfg, app.WithStore(store), app.WithLogger(log))
		if err := svc.Start(ctx); err != nil {
			log.Error(ctx, "failed to start service", logger.Error(err))
			return 1
		}
		_, err := svc.RunCrawl(ctx)
		svc.Stop()
		if err != nil {
			log.Warn(ctx, "crawl ended early, exporting what was ingested", logger.Error(err))
		}
	}

	now := time.Now().UTC()
	path := *out
	if path == "" {
		path = fmt.Sprintf("scholarships_%s.xlsx", now.Format("20060102_150405"))
	}
	f, err := os.Create(path)
	if err != nil {
		log.Error(ctx, "failed to create output", logger.String("path", path), logger.Error(err))
		return 1
	}

	n, err := export.FromStore(ctx, store, f, now)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Error(ctx, "export failed", logger.String("path", path), logger.Error(err))
		return 1
	}
	log.Info(ctx, "export written", logger.String("path", path), logger.Int("records", n))
	return 0
}

// openStore builds the configured store. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, func(), error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		pool, err := repository.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		pg := repository.NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pg, pool.Close, nil
	default:
		mem := repository.NewMemStore(ctx)
		return mem, func() { _ = mem.Close() }, nil
	}
}
