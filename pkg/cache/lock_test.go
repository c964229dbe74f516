package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redisForTest connects to REDIS_TEST_ADDR or skips.
func redisForTest(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestRedisLocker_MutualExclusion(t *testing.T) {
	client := redisForTest(t)
	locker := NewRedisLocker(client, 5*time.Second)
	key := "test:" + t.Name()

	unlock, err := locker.Lock(context.Background(), key)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, key)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // second call is a no-op

	unlock2, err := locker.Lock(context.Background(), key)
	require.NoError(t, err)
	unlock2()
}

func TestRedisLocker_ExpiredLeaseIsNotReleasedByOldHolder(t *testing.T) {
	client := redisForTest(t)
	locker := NewRedisLocker(client, 50*time.Millisecond)
	key := "test:" + t.Name()

	stale, err := locker.Lock(context.Background(), key)
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	fresh, err := NewRedisLocker(client, 5*time.Second).Lock(context.Background(), key)
	require.NoError(t, err)
	defer fresh()

	stale()
	exists, err := client.Exists(context.Background(), lockKeyPrefix+key).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
}
