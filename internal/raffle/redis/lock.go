package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client is the subset of redis operations the stall lock needs,
// satisfied by *redis.Client and by the mock client in tests.
type Client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type Logger interface {
	Info(category, message string)
	Warn(category, message string)
}

// StallLock fences concurrent raffle triggers for the same stall. It is
// a fast-path guard against double clicks and racing admins; the
// conditional vacant update inside the store transaction remains the
// correctness mechanism.
type StallLock struct {
	Client Client
	Logger Logger
}

func NewStallLock(client Client, logger Logger) *StallLock {
	return &StallLock{Client: client, Logger: logger}
}

// lockDuration reads the lock TTL from the environment, defaulting to
// two minutes. A raffle finishing normally releases the lock itself;
// the TTL only covers crashed holders.
func (l *StallLock) lockDuration() time.Duration {
	const defaultMinutes = 2

	ttlStr := os.Getenv("STALL_LOCK_TTL_MINUTES")
	if ttlStr == "" {
		return defaultMinutes * time.Minute
	}
	ttlMin, err := strconv.Atoi(ttlStr)
	if err != nil {
		l.Logger.Warn("REDIS", fmt.Sprintf("invalid STALL_LOCK_TTL_MINUTES %q, using default %d minutes", ttlStr, defaultMinutes))
		return defaultMinutes * time.Minute
	}
	return time.Duration(ttlMin) * time.Minute
}

// Lock claims the stall for one raffle run. Returns false when another
// run already holds it.
func (l *StallLock) Lock(stallID, raffleID string) (bool, error) {
	key := "stall_lock:" + stallID
	ok, err := l.Client.SetNX(context.Background(), key, raffleID, l.lockDuration()).Result()
	if err != nil {
		return false, err
	}
	if ok {
		l.Logger.Info("REDIS", fmt.Sprintf("locked stall %s for raffle %s", stallID, raffleID))
	}
	return ok, nil
}

// Unlock releases the stall if this raffle run still owns the lock.
// A lock held by a different run is left alone.
func (l *StallLock) Unlock(stallID, raffleID string) error {
	ctx := context.Background()
	key := "stall_lock:" + stallID
	val, err := l.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already released or expired
	}
	if err != nil {
		return err
	}
	if val == raffleID {
		_, err := l.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}
