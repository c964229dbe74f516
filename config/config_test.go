package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Engine.StoreDriver)
	assert.Equal(t, LockLocal, cfg.Engine.LockDriver)
	assert.Equal(t, 10*time.Second, cfg.Engine.LockTTL)
	assert.Equal(t, 5*time.Second, cfg.Engine.LockWait)
	assert.Equal(t, 200, cfg.Engine.QuoteBatchLimit)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.ServerAddr())
	assert.False(t, cfg.NeedsPostgres())
	assert.False(t, cfg.NeedsRedis())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("LOCK_DRIVER", "redis")
	t.Setenv("LOCK_WAIT", "250ms")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("POSTGRES_DB", "quotes")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.NeedsPostgres())
	assert.True(t, cfg.NeedsRedis())
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.LockWait)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr())
	assert.Contains(t, cfg.Postgres.DSN(), "quotes")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"STORE_DRIVER", "sqlite"},
		{"LOCK_DRIVER", "etcd"},
		{"LOCK_TTL", "0s"},
		{"QUOTE_BATCH_LIMIT", "0"},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
