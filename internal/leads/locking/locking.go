// Package locking provides the per-lead mutual exclusion taken around every
// lead mutation, backed by Redis.
package locking

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"loan_pipeline_backend/platform/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "lead-lock:"
	defaultTTL    = 10 * time.Second
	retryInterval = 50 * time.Millisecond
)

// ErrLockTimeout is returned when the lock could not be taken before the
// context expired.
var ErrLockTimeout = errors.New("lead is locked by another request")

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker serializes mutations per lead.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
}

// New wraps an existing Redis client.
func New(client *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Locker{client: client, ttl: ttl}
}

// NewFromConfig connects to the configured Redis instance.
func NewFromConfig(cfg config.LockConfig) (*Locker, error) {
	if cfg.GetRedisURL() == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}
	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}
	return New(redis.NewClient(opt), cfg.GetLeadLockTTL()), nil
}

// Close closes the underlying client.
func (l *Locker) Close() error {
	return l.client.Close()
}

// Lock blocks until the lead's lock is held or ctx is done. The returned
// release func is safe to call once the lock has expired.
func (l *Locker) Lock(ctx context.Context, leadID uuid.UUID) (func(), error) {
	key := keyPrefix + leadID.String()
	token := uuid.NewString()

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("acquire lead lock: %w", err)
		}
		if ok {
			return func() {
				_ = releaseScript.Run(context.WithoutCancel(ctx), l.client, []string{key}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-ticker.C:
		}
	}
}
