package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/seat_reservation/internal/core/domain"
	"github.com/srgjo27/seat_reservation/internal/core/ports"
)

type lease struct {
	token     string
	expiresAt time.Time
}

// Locker is a single-process stand-in for the Redis lock with the same
// set-if-absent-with-expiry behaviour.
type Locker struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

func NewLocker() *Locker {
	return &Locker{leases: make(map[string]lease), now: time.Now}
}

func (l *Locker) Acquire(ctx context.Context, key string, d time.Duration) (ports.Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, ok := l.leases[key]; ok && now.Before(cur.expiresAt) {
		return nil, fmt.Errorf("%w: %s", domain.ErrLockHeld, key)
	}

	held := lease{token: uuid.New().String(), expiresAt: now.Add(d)}
	l.leases[key] = held
	return &memLock{locker: l, key: key, lease: held}, nil
}

type memLock struct {
	locker *Locker
	key    string
	lease  lease
}

func (m *memLock) Key() string          { return m.key }
func (m *memLock) Token() string        { return m.lease.token }
func (m *memLock) ExpiresAt() time.Time { return m.lease.expiresAt }

func (m *memLock) Release(context.Context) error {
	m.locker.mu.Lock()
	defer m.locker.mu.Unlock()

	if cur, ok := m.locker.leases[m.key]; ok && cur.token == m.lease.token {
		delete(m.locker.leases, m.key)
	}
	return nil
}
