// Package db opens the PostgreSQL pool and applies the pricing schema.
package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/zap"

	"github.com/shiva/shipquote/config"
)

//go:embed schema.sql
var schemaSQL string

// NewPostgresPool creates a connection pool to PostgreSQL.
//
// Pool settings:
//   - MaxConns / MinConns from config (defaults 20 / 2)
//   - Health-check period: 30 s
//   - Connect timeout: 5 s
//
// Failed statements are logged through log; successful ones are not.
func NewPostgresPool(ctx context.Context, cfg config.PostgresConfig, log *zap.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.MaxConnLifetime = 1 * time.Hour
	poolCfg.MaxConnIdleTime = 15 * time.Minute
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second
	if log != nil {
		poolCfg.ConnConfig.Tracer = &tracelog.TraceLog{
			Logger:   zapTraceLogger(log.Named("postgres")),
			LogLevel: tracelog.LogLevelWarn,
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	// Verify connectivity.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return pool, nil
}

// zapTraceLogger forwards pgx trace events to zap. Query arguments are
// dropped; they may carry configuration values nobody asked to log.
func zapTraceLogger(log *zap.Logger) tracelog.LoggerFunc {
	return func(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
		fields := make([]zap.Field, 0, len(data))
		for k, v := range data {
			if k == "args" {
				continue
			}
			fields = append(fields, zap.Any(k, v))
		}
		switch {
		case level <= tracelog.LogLevelError:
			log.Error(msg, fields...)
		case level == tracelog.LogLevelWarn:
			log.Warn(msg, fields...)
		default:
			log.Debug(msg, fields...)
		}
	}
}

// EnsureSchema creates the pricing tables and indexes if they do not exist.
// Every statement is idempotent, so it is safe to run on each start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("postgres: apply schema: %w", err)
	}
	return nil
}

// HealthCheck pings the PostgreSQL pool and returns nil if healthy.
func HealthCheck(ctx context.Context, pool *pgxpool.Pool) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return pool.Ping(pingCtx)
}
