package ports

import (
	"context"
	"time"
)

// Lock is a held lease. It belongs to the call that acquired it.
type Lock interface {
	Key() string
	Token() string
	ExpiresAt() time.Time
	Release(ctx context.Context) error
}

type Locker interface {
	// Acquire returns domain.ErrLockHeld (wrapped) when another owner holds key.
	Acquire(ctx context.Context, key string, lease time.Duration) (Lock, error)
}
