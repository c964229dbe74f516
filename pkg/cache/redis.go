// Package cache wraps the Redis client used for cross-instance coordination.
package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shiva/shipquote/config"
)

// slowCommand is the latency above which a command is logged.
const slowCommand = 50 * time.Millisecond

// NewRedisClient creates a Redis client and verifies it answers PING.
//
// The client only backs the template lock (see lock.go): a handful of short
// SET NX / EVAL calls per guard operation, so the pool stays small.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	if log != nil {
		client.AddHook(logHook{log: log.Named("redis")})
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr(), err)
	}

	return client, nil
}

// HealthCheck pings the Redis client and returns nil if healthy.
func HealthCheck(ctx context.Context, client *redis.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(pingCtx).Err()
}

// logHook reports dial failures, command errors and slow commands.
// redis.Nil is a normal miss and is not logged.
type logHook struct {
	log *zap.Logger
}

func (h logHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.log.Warn("dial failed", zap.String("addr", addr), zap.Error(err))
		}
		return conn, err
	}
}

func (h logHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.observe(cmd.Name(), time.Since(start), err)
		return err
	}
}

func (h logHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		h.observe("pipeline", time.Since(start), err)
		return err
	}
}

func (h logHook) observe(name string, took time.Duration, err error) {
	switch {
	case err != nil && !errors.Is(err, redis.Nil):
		h.log.Warn("command failed", zap.String("cmd", name), zap.Duration("took", took), zap.Error(err))
	case took > slowCommand:
		h.log.Info("slow command", zap.String("cmd", name), zap.Duration("took", took))
	}
}
