package main

// Run database migrations:
//   go run ./cmd/migrate

import (
	"context"
	"os"

	"ocrdocs-backend/internal/shared/config"
	"ocrdocs-backend/internal/shared/storage/db"
	"ocrdocs-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Setup(cfg.LogLevel, nil)
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err})
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err})
		os.Exit(1)
	}
	telemetry.Info("migrate.done", nil)
}
