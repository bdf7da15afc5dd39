package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/srgjo27/seat_reservation/internal/core/domain"
	"github.com/srgjo27/seat_reservation/internal/core/ports"
)

type SeatRepository struct {
	store      *Store
	holdWindow time.Duration
}

func NewSeatRepository(store *Store, holdWindow time.Duration) *SeatRepository {
	if holdWindow <= 0 {
		holdWindow = 15 * time.Minute
	}
	return &SeatRepository{store: store, holdWindow: holdWindow}
}

// CheckAvailability reports every requested seat that is not AVAILABLE,
// including seats with no inventory row.
func (r *SeatRepository) CheckAvailability(ctx context.Context, tx ports.Tx, eventID string, showtime time.Time, seatIDs []string) ([]string, error) {
	st, err := r.store.txState(tx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	taken := []string{}
	for _, id := range seatIDs {
		seat, ok := st.seats[newSeatKey(eventID, showtime, id)]
		if !ok || !seat.IsAvailable() {
			taken = append(taken, id)
		}
	}
	sort.Strings(taken)
	return taken, nil
}

func (r *SeatRepository) ClaimSeats(ctx context.Context, tx ports.Tx, req domain.ClaimRequest) error {
	st, err := r.store.txState(tx)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if domain.ClaimableFrom(req.Target) == nil {
		return fmt.Errorf("memory: %s is not a claim status", req.Target)
	}

	at := req.At.UTC()
	bookingID := req.BookingID
	updated := 0
	for _, id := range req.SeatIDs {
		key := newSeatKey(req.EventID, req.Showtime, id)
		seat, ok := st.seats[key]
		if !ok || !seat.Status.CanTransitionTo(req.Target) {
			continue
		}

		seat.Status = req.Target
		seat.BookingID = &bookingID
		switch req.Target {
		case domain.SeatReserved:
			until := at.Add(r.holdWindow)
			seat.ReservedAt = &at
			seat.ReservedUntil = &until
		case domain.SeatSold:
			seat.SoldAt = &at
		}
		st.seats[key] = seat
		updated++
	}

	if updated != len(req.SeatIDs) {
		return fmt.Errorf("%w: claimed %d of %d seats", domain.ErrSeatClaimShortfall, updated, len(req.SeatIDs))
	}
	return nil
}

func (r *SeatRepository) ListSeats(ctx context.Context, eventID string, showtime time.Time) ([]domain.SeatRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	show := showtime.Truncate(time.Second).Unix()

	r.store.mu.RLock()
	seats := make([]domain.SeatRecord, 0)
	for k, seat := range r.store.state.seats {
		if k.eventID == eventID && k.showtime == show {
			seats = append(seats, seat)
		}
	}
	r.store.mu.RUnlock()

	sort.Slice(seats, func(i, j int) bool { return seats[i].SeatID < seats[j].SeatID })
	return seats, nil
}
