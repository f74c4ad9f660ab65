package db

import (
	"context"
	"database/sql"
	"fmt"
)

// OptionsFor returns env-adjusted pool options for role. Inside Lambda every
// role uses the Lambda sizing.
func OptionsFor(role Role) Options {
	if IsLambdaRuntime() {
		role = roleLambda
	}
	return OptionsFromEnv(Preset(role))
}

// Open connects to databaseURL for role. Lambda processes share the
// process-wide singleton; others get their own pool. Every role except
// RoleMigrate applies pending migrations before returning.
func Open(ctx context.Context, databaseURL string, role Role) (*sql.DB, error) {
	opts := OptionsFor(role)
	var (
		database *sql.DB
		err      error
	)
	if IsLambdaRuntime() {
		database, err = GetSingleton(ctx, databaseURL, opts)
	} else {
		database, err = Connect(ctx, databaseURL, opts)
	}
	if err != nil {
		return nil, err
	}
	if role == RoleMigrate {
		return database, nil
	}
	if err := RunMigrations(ctx, database); err != nil {
		if !IsLambdaRuntime() {
			database.Close()
		}
		return nil, fmt.Errorf("migrate on open (%s): %w", role, err)
	}
	return database, nil
}

// PoolStats summarizes connection pool usage for health output.
func PoolStats(database *sql.DB) map[string]any {
	if database == nil {
		return nil
	}
	stats := database.Stats()
	return map[string]any{
		"open":     stats.OpenConnections,
		"in_use":   stats.InUse,
		"idle":     stats.Idle,
		"wait":     stats.WaitCount,
		"max_open": stats.MaxOpenConnections,
	}
}
