package ports

import (
	"context"
	"time"

	"github.com/srgjo27/seat_reservation/internal/core/domain"
)

// Tx is an open unit of work. A Tx must not be shared between goroutines.
type Tx interface {
	Commit() error
	Rollback() error
}

type UnitOfWork interface {
	Begin(ctx context.Context) (Tx, error)
}

type SeatRepository interface {
	// CheckAvailability returns the requested seat ids that are already
	// RESERVED or SOLD.
	CheckAvailability(ctx context.Context, tx Tx, eventID string, showtime time.Time, seatIDs []string) ([]string, error)
	// ClaimSeats conditionally moves every requested seat into req.Target.
	// Any seat that could not be moved fails the whole claim.
	ClaimSeats(ctx context.Context, tx Tx, req domain.ClaimRequest) error
	ListSeats(ctx context.Context, eventID string, showtime time.Time) ([]domain.SeatRecord, error)
}

type BookingRepository interface {
	Insert(ctx context.Context, tx Tx, booking *domain.Booking) error
	FindByID(ctx context.Context, bookingID string) (*domain.Booking, error)
	FindByUser(ctx context.Context, userID string) ([]domain.Booking, error)
	UpdateStatus(ctx context.Context, bookingID string, status domain.BookingStatus) error
	Cancel(ctx context.Context, bookingID string) error
}
