package domain

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

func (s BookingStatus) Valid() bool {
	return s == BookingConfirmed || s == BookingCancelled
}

// bookingSources lists, per target status, the statuses a booking may move from.
// A cancelled booking never returns to CONFIRMED.
var bookingSources = map[BookingStatus][]BookingStatus{
	BookingCancelled: {BookingConfirmed},
}

// BookingTransitionSources returns the statuses a booking must hold to be
// moved into target, or nil when nothing may move into it.
func BookingTransitionSources(target BookingStatus) []BookingStatus {
	src := bookingSources[target]
	if src == nil {
		return nil
	}
	out := make([]BookingStatus, len(src))
	copy(out, src)
	return out
}

// BookingTransitionError explains why a booking in status from could not be
// moved into to. A booking that is already cancelled reports ErrBookingCancelled.
func BookingTransitionError(bookingID string, from, to BookingStatus) error {
	if from == BookingCancelled && to == BookingCancelled {
		return fmt.Errorf("%w: %s", ErrBookingCancelled, bookingID)
	}
	return fmt.Errorf("%w: %s from %s to %s", ErrBookingTransition, bookingID, from, to)
}

func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, from := range bookingSources[target] {
		if from == s {
			return true
		}
	}
	return false
}

// Booking is a ledger row. SeatIDs keeps request order and its length
// always equals Quantity.
type Booking struct {
	ID        string
	EventID   string
	UserID    string
	Showtime  time.Time
	Quantity  int
	Status    BookingStatus
	CreatedAt time.Time
	UpdatedAt time.Time
	SeatIDs   []string
}

func (b *Booking) IsCancelled() bool {
	return b.Status == BookingCancelled
}
