package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver

	"legalreview-backend/internal/shared/telemetry"
)

// Options controls pool sizing and how hard Connect tries to reach the server.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	// PingAttempts bounds the pings Connect makes before giving up; values
	// below 1 mean a single attempt.
	PingAttempts int
	PingBackoff  time.Duration
}

// Role names the kind of process opening the database.
type Role string

const (
	RoleAPI     Role = "api"
	RoleWorker  Role = "worker"
	RoleMigrate Role = "migrate"
	roleLambda  Role = "lambda"
)

// presets hold the pool sizing per role before DB_* overrides.
var presets = map[Role]Options{
	RoleAPI: {
		MaxOpenConns: 10, MaxIdleConns: 5,
		ConnMaxIdleTime: 2 * time.Minute, ConnMaxLifetime: time.Hour,
		PingTimeout: 5 * time.Second, PingAttempts: 1,
	},
	RoleWorker: {
		MaxOpenConns: 4, MaxIdleConns: 2,
		ConnMaxIdleTime: time.Minute, ConnMaxLifetime: time.Hour,
		PingTimeout: 5 * time.Second, PingAttempts: 5, PingBackoff: 2 * time.Second,
	},
	RoleMigrate: {
		MaxOpenConns: 1, MaxIdleConns: 1,
		ConnMaxIdleTime: 2 * time.Minute, ConnMaxLifetime: time.Hour,
		PingTimeout: 5 * time.Second, PingAttempts: 3, PingBackoff: time.Second,
	},
	roleLambda: {
		MaxOpenConns: 2, MaxIdleConns: 1,
		ConnMaxIdleTime: 30 * time.Second, ConnMaxLifetime: 15 * time.Minute,
		PingTimeout: 3 * time.Second, PingAttempts: 1,
	},
}

var (
	openDB      = sql.Open
	singletonMu sync.Mutex
	singletonDB *sql.DB
)

// IsLambdaRuntime reports whether the current process is running in AWS Lambda.
func IsLambdaRuntime() bool {
	return strings.TrimSpace(os.Getenv("AWS_LAMBDA_FUNCTION_NAME")) != ""
}

// Preset returns the built-in options for role without env overrides.
// Unknown roles get the API sizing.
func Preset(role Role) Options {
	if opts, ok := presets[role]; ok {
		return opts
	}
	return presets[RoleAPI]
}

// OptionsFromEnv overrides base with any DB_* variables that parse.
func OptionsFromEnv(base Options) Options {
	opts := base
	envInt("DB_MAX_OPEN_CONNS", &opts.MaxOpenConns)
	envInt("DB_MAX_IDLE_CONNS", &opts.MaxIdleConns)
	envInt("DB_PING_ATTEMPTS", &opts.PingAttempts)
	envDuration("DB_CONN_MAX_LIFETIME", &opts.ConnMaxLifetime)
	envDuration("DB_CONN_MAX_IDLE_TIME", &opts.ConnMaxIdleTime)
	envDuration("DB_PING_TIMEOUT", &opts.PingTimeout)
	envDuration("DB_PING_BACKOFF", &opts.PingBackoff)
	return opts
}

// Connect opens a pgx-backed pool and pings it, retrying per opts. The pool
// is meant to be shared by the whole process.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("DATABASE_URL is empty")
	}

	database, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	applyOptions(database, opts)

	attempts := max(opts.PingAttempts, 1)
	for attempt := 1; ; attempt++ {
		err = ping(ctx, database, opts.PingTimeout)
		if err == nil {
			break
		}
		if attempt >= attempts || ctx.Err() != nil {
			database.Close()
			return nil, fmt.Errorf("ping database (attempt %d/%d): %w", attempt, attempts, err)
		}
		telemetry.Warn("db.ping.retry", map[string]any{"attempt": attempt, "error": err})
		select {
		case <-ctx.Done():
			database.Close()
			return nil, ctx.Err()
		case <-time.After(opts.PingBackoff):
		}
	}

	logPoolStats(database, "db.init")
	return database, nil
}

func ping(ctx context.Context, database *sql.DB, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return database.PingContext(pingCtx)
}

// GetSingleton returns the process-wide pool, connecting on first use. A
// failed connect leaves nothing cached, so the next call tries again.
// Concurrent first callers wait for the one connecting.
func GetSingleton(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	if singletonDB != nil {
		return singletonDB, nil
	}
	database, err := Connect(ctx, databaseURL, opts)
	if err != nil {
		return nil, err
	}
	singletonDB = database
	telemetry.Info("db.singleton.init", nil)
	return singletonDB, nil
}

func applyOptions(database *sql.DB, opts Options) {
	api := presets[RoleAPI]
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = api.MaxOpenConns
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = api.MaxIdleConns
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = api.ConnMaxLifetime
	}
	database.SetMaxOpenConns(opts.MaxOpenConns)
	database.SetMaxIdleConns(opts.MaxIdleConns)
	database.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		database.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}

func logPoolStats(database *sql.DB, label string) {
	telemetry.Info(label, PoolStats(database))
}

func envInt(key string, dst *int) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		telemetry.Warn("db.env.invalid", map[string]any{"key": key, "error": err})
		return
	}
	*dst = val
}

func envDuration(key string, dst *time.Duration) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		telemetry.Warn("db.env.invalid", map[string]any{"key": key, "error": err})
		return
	}
	*dst = val
}
