package main

import (
	"context"
	"log"
	"time"

	"github.com/noah-isme/course-registration-api/migrations"
	"github.com/noah-isme/course-registration-api/pkg/config"
	"github.com/noah-isme/course-registration-api/pkg/database"
	"github.com/noah-isme/course-registration-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg, "migrate")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database unavailable", "error", err)
	}
	defer db.Close()

	applied, err := database.Migrate(ctx, db, migrations.FS, logr)
	if err != nil {
		logr.Sugar().Fatalw("migration failed", "applied", applied, "error", err)
	}
	logr.Sugar().Infow("migrations complete", "applied", len(applied))
}
