package main

// Run database migrations:
//   go run ./cmd/migrate [up|down|status|version|redo|reset]

import (
	"context"
	"os"
	"os/signal"
	"time"

	"legalreview-backend/internal/shared/config"
	"legalreview-backend/internal/shared/storage/db"
	"legalreview-backend/internal/shared/telemetry"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func run(argv []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	command, args := "up", []string(nil)
	if len(argv) > 0 {
		command, args = argv[0], argv[1:]
	}

	cfg := config.Load()
	sqlDB, err := db.Open(ctx, cfg.DatabaseURL, db.RoleMigrate)
	if err != nil {
		telemetry.Error("migrate.connect.failed", map[string]any{"error": err})
		return err
	}
	defer sqlDB.Close()

	start := time.Now()
	if err := db.Migrate(ctx, sqlDB, command, args...); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"command": command, "error": err})
		return err
	}
	telemetry.Info("migrate.done", map[string]any{
		"command":     command,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}
