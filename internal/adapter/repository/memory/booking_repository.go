package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/seat_reservation/internal/core/domain"
	"github.com/srgjo27/seat_reservation/internal/core/ports"
)

type BookingRepository struct {
	store *Store
	now   func() time.Time
}

func NewBookingRepository(store *Store) *BookingRepository {
	return &BookingRepository{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (r *BookingRepository) Insert(ctx context.Context, tx ports.Tx, booking *domain.Booking) error {
	st, err := r.store.txState(tx)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}
	if _, exists := st.bookings[booking.ID]; exists {
		return fmt.Errorf("%w: booking %s", ErrDuplicate, booking.ID)
	}

	st.bookings[booking.ID] = copyBooking(*booking)
	return nil
}

func (r *BookingRepository) FindByID(ctx context.Context, bookingID string) (*domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	b, ok := r.store.state.bookings[bookingID]
	r.store.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrBookingNotFound, bookingID)
	}

	out := copyBooking(b)
	return &out, nil
}

func (r *BookingRepository) FindByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	bookings := []domain.Booking{}
	for _, b := range r.store.state.bookings {
		if b.UserID == userID {
			bookings = append(bookings, copyBooking(b))
		}
	}
	r.store.mu.RUnlock()

	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].ID < bookings[j].ID
		}
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
	return bookings, nil
}

// UpdateStatus commits on its own, waiting for any open unit of work. Only
// transitions allowed by the booking status table are applied.
func (r *BookingRepository) UpdateStatus(ctx context.Context, bookingID string, status domain.BookingStatus) error {
	if !status.Valid() {
		return fmt.Errorf("memory: invalid booking status %q", status)
	}
	if domain.BookingTransitionSources(status) == nil {
		return fmt.Errorf("%w: %s to %s", domain.ErrBookingTransition, bookingID, status)
	}
	if err := r.store.acquireWriter(ctx); err != nil {
		return err
	}
	defer r.store.releaseWriter()

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	b, ok := r.store.state.bookings[bookingID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrBookingNotFound, bookingID)
	}
	if !b.Status.CanTransitionTo(status) {
		return domain.BookingTransitionError(bookingID, b.Status, status)
	}
	b.Status = status
	b.UpdatedAt = r.now()
	r.store.state.bookings[bookingID] = b
	return nil
}

func (r *BookingRepository) Cancel(ctx context.Context, bookingID string) error {
	return r.UpdateStatus(ctx, bookingID, domain.BookingCancelled)
}

func copyBooking(b domain.Booking) domain.Booking {
	seats := make([]string, len(b.SeatIDs))
	copy(seats, b.SeatIDs)
	b.SeatIDs = seats
	return b
}
