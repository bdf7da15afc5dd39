// Package memory implements the storage ports in process memory. A Store
// admits one open unit of work at a time, which gives serializable
// semantics: writes made through a Tx become visible only on Commit.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/srgjo27/seat_reservation/internal/core/domain"
	"github.com/srgjo27/seat_reservation/internal/core/ports"
)

var (
	ErrTxDone    = errors.New("memory: transaction has already been committed or rolled back")
	ErrForeignTx = errors.New("memory: transaction does not belong to this store")
	ErrDuplicate = errors.New("memory: duplicate key")
)

type seatKey struct {
	eventID  string
	showtime int64
	seatID   string
}

func newSeatKey(eventID string, showtime time.Time, seatID string) seatKey {
	return seatKey{eventID: eventID, showtime: showtime.Truncate(time.Second).Unix(), seatID: seatID}
}

type state struct {
	seats    map[seatKey]domain.SeatRecord
	bookings map[string]domain.Booking
}

func (s *state) clone() *state {
	c := &state{
		seats:    make(map[seatKey]domain.SeatRecord, len(s.seats)),
		bookings: make(map[string]domain.Booking, len(s.bookings)),
	}
	for k, v := range s.seats {
		c.seats[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	return c
}

type Store struct {
	writer chan struct{}

	mu    sync.RWMutex
	state *state
}

func NewStore() *Store {
	return &Store{
		writer: make(chan struct{}, 1),
		state: &state{
			seats:    make(map[seatKey]domain.SeatRecord),
			bookings: make(map[string]domain.Booking),
		},
	}
}

// AddSeats provisions seat rows, replacing any existing row with the same
// identity.
func (s *Store) AddSeats(seats ...domain.SeatRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seat := range seats {
		seat.Showtime = seat.Showtime.UTC().Truncate(time.Second)
		s.state.seats[newSeatKey(seat.EventID, seat.Showtime, seat.SeatID)] = seat
	}
}

func (s *Store) acquireWriter(ctx context.Context) error {
	select {
	case s.writer <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) releaseWriter() {
	<-s.writer
}

type UnitOfWork struct {
	store *Store
}

func NewUnitOfWork(store *Store) *UnitOfWork {
	return &UnitOfWork{store: store}
}

func (u *UnitOfWork) Begin(ctx context.Context) (ports.Tx, error) {
	if err := u.store.acquireWriter(ctx); err != nil {
		return nil, err
	}
	u.store.mu.RLock()
	st := u.store.state.clone()
	u.store.mu.RUnlock()
	return &Tx{store: u.store, state: st}, nil
}

type Tx struct {
	store *Store
	state *state
	done  bool
}

func (t *Tx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.store.mu.Lock()
	t.store.state = t.state
	t.store.mu.Unlock()
	t.store.releaseWriter()
	return nil
}

func (t *Tx) Rollback() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.store.releaseWriter()
	return nil
}

func (s *Store) txState(tx ports.Tx) (*state, error) {
	t, ok := tx.(*Tx)
	if !ok || t.store != s {
		return nil, ErrForeignTx
	}
	if t.done {
		return nil, ErrTxDone
	}
	return t.state, nil
}
