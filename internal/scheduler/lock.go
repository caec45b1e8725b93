package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another owner holds the key
var ErrLockHeld = errors.New("lock held by another owner")

// ErrLockLost is returned when an extend or release finds the token replaced
var ErrLockLost = errors.New("lock no longer owned")

var (
	releaseScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		end
		return 0
	`)
	extendScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		end
		return 0
	`)
)

// Lock is a Redis SETNX lock owned through a random token.
// It lets several replicas agree on which one acts for a given key.
type Lock struct {
	client redis.Cmdable
	key    string
	token  string
	ttl    time.Duration
}

// TryLock acquires key for ttl. It returns ErrLockHeld without blocking
// when the key is already taken.
func TryLock(ctx context.Context, client redis.Cmdable, key string, ttl time.Duration) (*Lock, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("lock ttl must be positive, got %v", ttl)
	}
	token := uuid.NewString()

	ok, err := client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	return &Lock{client: client, key: key, token: token, ttl: ttl}, nil
}

// Release deletes the key if this lock still owns it
func (l *Lock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrLockLost
	}
	return nil
}

// Extend resets the key's TTL if this lock still owns it
func (l *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.client, []string{l.key}, l.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("failed to extend lock %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrLockLost
	}
	l.ttl = ttl
	return nil
}

// Key returns the Redis key for this lock
func (l *Lock) Key() string { return l.key }

// Token returns the owner token
func (l *Lock) Token() string { return l.token }

// TTL returns the lock time-to-live
func (l *Lock) TTL() time.Duration { return l.ttl }
