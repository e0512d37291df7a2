package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver

	"ocrdocs-backend/internal/shared/telemetry"
)

const driverName = "pgx"

// Options sizes the connection pool and bounds the startup ping.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

var openDB = sql.Open

// DefaultServerOptions is the pool used by the API process.
func DefaultServerOptions() Options {
	return Options{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 2 * time.Minute,
		PingTimeout:     5 * time.Second,
	}
}

// DefaultMigrateOptions holds a single connection; goose applies migrations serially.
func DefaultMigrateOptions() Options {
	opts := DefaultServerOptions()
	opts.MaxOpenConns = 1
	opts.MaxIdleConns = 1
	return opts
}

// withFallbacks fills unset pool limits so a zero Options is still usable.
func (o Options) withFallbacks() Options {
	def := DefaultServerOptions()
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = def.MaxOpenConns
	}
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = def.MaxIdleConns
	}
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = def.ConnMaxLifetime
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = def.PingTimeout
	}
	return o
}

func (o Options) applyTo(pool *sql.DB) {
	pool.SetMaxOpenConns(o.MaxOpenConns)
	pool.SetMaxIdleConns(o.MaxIdleConns)
	pool.SetConnMaxLifetime(o.ConnMaxLifetime)
	if o.ConnMaxIdleTime > 0 {
		pool.SetConnMaxIdleTime(o.ConnMaxIdleTime)
	}
}

type envOverride struct {
	key   string
	apply func(o *Options, raw string) error
}

var envOverrides = []envOverride{
	{"DB_MAX_OPEN_CONNS", setInt(func(o *Options) *int { return &o.MaxOpenConns })},
	{"DB_MAX_IDLE_CONNS", setInt(func(o *Options) *int { return &o.MaxIdleConns })},
	{"DB_CONN_MAX_LIFETIME", setDuration(func(o *Options) *time.Duration { return &o.ConnMaxLifetime })},
	{"DB_CONN_MAX_IDLE_TIME", setDuration(func(o *Options) *time.Duration { return &o.ConnMaxIdleTime })},
	{"DB_PING_TIMEOUT", setDuration(func(o *Options) *time.Duration { return &o.PingTimeout })},
}

func setInt(field func(*Options) *int) func(*Options, string) error {
	return func(o *Options, raw string) error {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		*field(o) = v
		return nil
	}
}

func setDuration(field func(*Options) *time.Duration) func(*Options, string) error {
	return func(o *Options, raw string) error {
		v, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		*field(o) = v
		return nil
	}
}

// OptionsFromEnv applies DB_* overrides on top of defaults. Unparsable values
// are logged and skipped.
func OptionsFromEnv(defaults Options) Options {
	opts := defaults
	for _, ov := range envOverrides {
		raw := strings.TrimSpace(os.Getenv(ov.key))
		if raw == "" {
			continue
		}
		if err := ov.apply(&opts, raw); err != nil {
			telemetry.Warn("db.env.invalid", map[string]any{"key": ov.key, "error": err})
		}
	}
	return opts
}

// Connect opens the pgx-backed pool and pings it once. Callers share the
// returned *sql.DB for the life of the process.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("DATABASE_URL is empty")
	}
	target := redact(databaseURL)
	opts = opts.withFallbacks()

	pool, err := openDB(driverName, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", target, err)
	}
	opts.applyTo(pool)

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database %s: %w", target, err)
	}

	telemetry.Info("db.connected", map[string]any{
		"target":   target,
		"max_open": pool.Stats().MaxOpenConnections,
		"max_idle": opts.MaxIdleConns,
	})
	return pool, nil
}

// redact reduces a connection URL to host and database name.
func redact(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil || u.Host == "" {
		return "postgres"
	}
	return u.Host + u.Path
}
