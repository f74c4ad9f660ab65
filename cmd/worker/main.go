package main

// Drain the review events queue into the review_events table:
//   EVENTS_QUEUE_URL=... DATABASE_URL=... go run ./cmd/worker

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"legalreview-backend/internal/audit"
	"legalreview-backend/internal/events"
	"legalreview-backend/internal/shared/config"
	"legalreview-backend/internal/shared/storage/db"
	"legalreview-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	if strings.TrimSpace(cfg.EventsQueueURL) == "" {
		log.Fatal("EVENTS_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqlDB, err := openDB(ctx, cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if sqlDB != nil {
		defer sqlDB.Close()
	}

	consumer, err := events.NewSQSConsumer(ctx, cfg.EventsQueueURL, cfg.AWSRegion)
	if err != nil {
		log.Fatalf("events consumer: %v", err)
	}

	sink := &audit.Sink{DB: sqlDB}
	telemetry.Info("worker.started", map[string]any{"queue_url": cfg.EventsQueueURL, "database": sqlDB != nil})
	if err := consumer.Run(ctx, sink.Handle); err != nil {
		log.Fatalf("worker: %v", err)
	}
	telemetry.Info("worker.stopped", nil)
}

func openDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if config.IsDevLike(cfg.Env) {
			return nil, nil
		}
		return nil, errors.New("DATABASE_URL is required")
	}
	return db.Open(ctx, cfg.DatabaseURL, db.RoleWorker)
}
