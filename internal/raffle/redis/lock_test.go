package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopLogger struct{}

func (noopLogger) Info(category, message string) {}
func (noopLogger) Warn(category, message string) {}

// setupTestRedis creates a Redis client using miniredis for testing
// miniredis is an in-memory Redis mock that doesn't require a real Redis server
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}

	return client, mr
}

func cleanupTestRedis(client *redis.Client, mr *miniredis.Miniredis) {
	if client != nil {
		client.Close()
	}
	if mr != nil {
		mr.Close()
	}
}

func TestLock_FencesSecondRun(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	lock := NewStallLock(client, noopLogger{})

	// First raffle run claims the stall.
	ok, err := lock.Lock("stall-1", "raffle-a")
	require.NoError(t, err)
	assert.True(t, ok)

	// A second run for the same stall is fenced out.
	ok, err = lock.Lock("stall-1", "raffle-b")
	require.NoError(t, err)
	assert.False(t, ok)

	// A different stall is unaffected.
	ok, err = lock.Lock("stall-2", "raffle-b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnlock_OnlyOwnerReleases(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	lock := NewStallLock(client, noopLogger{})

	ok, err := lock.Lock("stall-1", "raffle-a")
	require.NoError(t, err)
	require.True(t, ok)

	// A non-owner unlock leaves the fence in place.
	require.NoError(t, lock.Unlock("stall-1", "raffle-b"))
	val, err := client.Get(context.Background(), "stall_lock:stall-1").Result()
	require.NoError(t, err)
	assert.Equal(t, "raffle-a", val)

	// The owner releases it and the stall can be claimed again.
	require.NoError(t, lock.Unlock("stall-1", "raffle-a"))
	ok, err = lock.Lock("stall-1", "raffle-c")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnlock_MissingKeyIsFine(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	lock := NewStallLock(client, noopLogger{})

	// Unlocking an expired or never-taken lock is a no-op.
	assert.NoError(t, lock.Unlock("stall-1", "raffle-a"))
}

func TestLock_ExpiresAfterTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	lock := NewStallLock(client, noopLogger{})

	ok, err := lock.Lock("stall-1", "raffle-a")
	require.NoError(t, err)
	require.True(t, ok)

	// A crashed holder never unlocks; the TTL frees the stall.
	mr.FastForward(lock.lockDuration())

	ok, err = lock.Lock("stall-1", "raffle-b")
	require.NoError(t, err)
	assert.True(t, ok)
}
