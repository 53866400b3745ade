// Command expire-pending runs a single expiry pass over pending enrollments whose deadline has
// passed. It is meant to be invoked by an external scheduler such as cron or a Kubernetes CronJob.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/course-registration-api/internal/repository"
	"github.com/noah-isme/course-registration-api/internal/service"
	"github.com/noah-isme/course-registration-api/pkg/config"
	"github.com/noah-isme/course-registration-api/pkg/database"
	"github.com/noah-isme/course-registration-api/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 1
	}

	logr, err := logger.New(cfg, "expire-pending")
	if err != nil {
		log.Printf("failed to init logger: %v", err)
		return 1
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Errorw("database unavailable", "error", err)
		return 1
	}
	defer db.Close()

	enrollmentRepo := repository.NewEnrollmentRepository(db)
	pendingRepo := repository.NewPendingEnrollmentRepository(db, enrollmentRepo)
	metrics := service.NewMetricsService()
	pendingSvc := service.NewPendingEnrollmentService(pendingRepo, metrics, cfg.Pending, validator.New(), logr)

	summary, err := pendingSvc.ExpireDue(ctx, cfg.Expiry)
	if err != nil {
		logr.Sugar().Errorw("expiry pass failed", "error", err)
		return 1
	}
	if summary.Failed > 0 {
		logr.Sugar().Warnw("expiry pass left failures", "failed", summary.Failed)
		return 2
	}
	return 0
}
