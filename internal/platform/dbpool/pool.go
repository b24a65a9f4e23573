package dbpool

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/todo-1m/todos/internal/platform/config"
)

const (
	defaultMinConns        = 2
	defaultMaxConns        = 20
	defaultMaxConnLifetime = 30 * time.Minute
	defaultMaxConnIdleTime = 5 * time.Minute
	defaultHealthCheck     = 30 * time.Second
)

func New(ctx context.Context, storage config.StorageConfig) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(storage.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	apply(cfg, storage)
	return pgxpool.NewWithConfig(ctx, cfg)
}

func apply(cfg *pgxpool.Config, storage config.StorageConfig) {
	minConns := storage.MinConns
	maxConns := storage.MaxConns
	if minConns < 0 {
		minConns = defaultMinConns
	}
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	if minConns > maxConns {
		minConns = maxConns
	}

	cfg.MinConns = int32(minConns)
	cfg.MaxConns = int32(maxConns)
	cfg.MaxConnLifetime = orDefault(storage.MaxConnLifetime.Duration, defaultMaxConnLifetime)
	cfg.MaxConnIdleTime = orDefault(storage.MaxConnIdleTime.Duration, defaultMaxConnIdleTime)
	cfg.HealthCheckPeriod = orDefault(storage.HealthCheckPeriod.Duration, defaultHealthCheck)
}

func orDefault(v, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}
