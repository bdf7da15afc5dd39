// Package redislock provides the reservation lock on top of Redis
// SET NX with an expiry. Leases carry a random owner token so that a caller
// whose lease expired cannot delete a lock someone else now holds.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/srgjo27/seat_reservation/internal/core/domain"
	"github.com/srgjo27/seat_reservation/internal/core/ports"
)

// ErrNotOwner is returned by Release when the lease had already expired or
// passed to another owner.
var ErrNotOwner = errors.New("redislock: lock not held by this owner")

const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

type Locker struct {
	client redis.Cmdable
	token  func() string
	now    func() time.Time
}

type Option func(*Locker)

func WithTokenSource(fn func() string) Option {
	return func(l *Locker) {
		if fn != nil {
			l.token = fn
		}
	}
}

func New(client redis.Cmdable, opts ...Option) *Locker {
	l := &Locker{
		client: client,
		token:  func() string { return uuid.New().String() },
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Locker) Acquire(ctx context.Context, key string, lease time.Duration) (ports.Lock, error) {
	if lease <= 0 {
		return nil, fmt.Errorf("redislock: lease must be positive, got %s", lease)
	}

	token := l.token()
	acquired, err := l.client.SetNX(ctx, key, token, lease).Result()
	if err != nil {
		return nil, fmt.Errorf("redislock: acquire %s: %w", key, err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: %s", domain.ErrLockHeld, key)
	}

	return &Lock{
		client:    l.client,
		key:       key,
		token:     token,
		expiresAt: l.now().Add(lease),
	}, nil
}

type Lock struct {
	client    redis.Cmdable
	key       string
	token     string
	expiresAt time.Time
}

func (l *Lock) Key() string          { return l.key }
func (l *Lock) Token() string        { return l.token }
func (l *Lock) ExpiresAt() time.Time { return l.expiresAt }

func (l *Lock) Release(ctx context.Context) error {
	deleted, err := l.client.Eval(ctx, releaseScript, []string{l.key}, l.token).Int64()
	if err != nil {
		return fmt.Errorf("redislock: release %s: %w", l.key, err)
	}
	if deleted == 0 {
		return fmt.Errorf("%w: %s", ErrNotOwner, l.key)
	}
	return nil
}
