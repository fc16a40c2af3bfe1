// Command migrate creates the canonical schema in Postgres and optionally
// imports a first-generation scholarships table.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/scholarsync/internal/adapters/repository"
	"github.com/okian/scholarsync/internal/config"
	"github.com/okian/scholarsync/pkg/logger"
)

const migrateTimeout = 10 * time.Minute

func main() {
	os.Exit(run())
}

func run() int {
	legacyTable := flag.String("legacy-table", "", "Import rows from this legacy table after migrating")
	flag.Parse()

	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get().Named("migrate")

	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Error(ctx, "failed to load config", logger.Error(err))
		return 1
	}
	if cfg.DatabaseURL == "" {
		log.Error(ctx, "database_url is required")
		return 1
	}

	pool, err := repository.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error(ctx, "failed to connect", logger.Error(err))
		return 1
	}
	defer pool.Close()

	pg := repository.NewPostgres(pool)
	if err := pg.Migrate(ctx); err != nil {
		log.Error(ctx, "migration failed", logger.Error(err))
		return 1
	}
	log.Info(ctx, "schema is up to date")

	if *legacyTable == "" {
		return 0
	}
	n, err := pg.MigrateLegacy(ctx, *legacyTable)
	if err != nil {
		log.Error(ctx, "legacy import failed", logger.String("table", *legacyTable), logger.Error(err))
		return 1
	}
	log.Info(ctx, "legacy rows imported", logger.String("table", *legacyTable), logger.Int("inserted", n))
	return 0
}
