package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/ChequeGuard/pkg/errors"
)

var ErrLockNotHeld = errors.New(errors.ErrCodeConflict, "lock not held by this owner")

const lockKeyPrefix = "chequeguard:lock:"

// Mutex is a single-owner lease on one key. Each Mutex carries its own
// random token, so only the holder can release it.
type Mutex struct {
	client *Client
	key    string
	value  string
	ttl    time.Duration
}

var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// NewMutex returns an unlocked lease named name that expires ttl after it is
// taken.
func NewMutex(client *Client, name string, ttl time.Duration) *Mutex {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Mutex{
		client: client,
		key:    lockKeyPrefix + name,
		value:  uuid.New().String(),
		ttl:    ttl,
	}
}

// TryLock takes the lease without waiting. It reports false when another
// owner holds it.
func (m *Mutex) TryLock(ctx context.Context) (bool, error) {
	if m.client.isClosed() {
		return false, ErrClientClosed
	}
	ok, err := m.client.rdb.SetNX(ctx, m.key, m.value, m.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to set lock").WithDetail(m.key)
	}
	return ok, nil
}

// Unlock releases the lease if this Mutex still holds it.
func (m *Mutex) Unlock(ctx context.Context) error {
	if m.client.isClosed() {
		return ErrClientClosed
	}
	res, err := unlockScript.Run(ctx, m.client.rdb, []string{m.key}, m.value).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to release lock").WithDetail(m.key)
	}
	if res == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// TTL returns the remaining lease time, or a negative duration when the key
// is absent.
func (m *Mutex) TTL(ctx context.Context) (time.Duration, error) {
	if m.client.isClosed() {
		return 0, ErrClientClosed
	}
	return m.client.rdb.PTTL(ctx, m.key).Result()
}
