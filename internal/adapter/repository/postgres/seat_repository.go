package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/lib/pq"
	"github.com/srgjo27/seat_reservation/internal/core/domain"
	"github.com/srgjo27/seat_reservation/internal/core/ports"
)

const defaultHoldWindow = 15 * time.Minute

type SeatRepository struct {
	db         *sql.DB
	holdWindow time.Duration
}

func NewSeatRepository(db *sql.DB, holdWindow time.Duration) *SeatRepository {
	if holdWindow <= 0 {
		holdWindow = defaultHoldWindow
	}
	return &SeatRepository{db: db, holdWindow: holdWindow}
}

// CheckAvailability row-locks every requested seat for the rest of the
// transaction and reports the ones that are not AVAILABLE. Requested seats
// with no inventory row are reported too.
func (r *SeatRepository) CheckAvailability(ctx context.Context, tx ports.Tx, eventID string, showtime time.Time, seatIDs []string) ([]string, error) {
	stx, err := sqlTx(tx)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT seat_id, status
	FROM seat_inventory
	WHERE event_id = $1 AND showtime = $2 AND seat_id = ANY($3)
	ORDER BY seat_id
	FOR UPDATE
	`

	rows, err := stx.QueryContext(ctx, query, eventID, showtime, pq.Array(seatIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to check seat availability: %w", err)
	}

	defer rows.Close()

	found := make(map[string]struct{}, len(seatIDs))
	taken := []string{}
	for rows.Next() {
		var seatID string
		var status domain.SeatStatus
		if err := rows.Scan(&seatID, &status); err != nil {
			return nil, err
		}

		found[seatID] = struct{}{}
		if status != domain.SeatAvailable {
			taken = append(taken, seatID)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range seatIDs {
		if _, ok := found[id]; !ok {
			taken = append(taken, id)
		}
	}
	sort.Strings(taken)

	return taken, nil
}

func (r *SeatRepository) ClaimSeats(ctx context.Context, tx ports.Tx, req domain.ClaimRequest) error {
	stx, err := sqlTx(tx)
	if err != nil {
		return err
	}

	from := domain.ClaimableFrom(req.Target)
	if from == nil {
		return fmt.Errorf("cannot claim seats into status %s", req.Target)
	}
	sources := make([]string, len(from))
	for i, s := range from {
		sources[i] = string(s)
	}

	at := req.At.UTC()
	var result sql.Result

	switch req.Target {
	case domain.SeatReserved:
		query := `
		UPDATE seat_inventory
		SET status = $1,
			booking_id = $2,
			reserved_at = $3,
			reserved_until = $4,
			updated_at = $3
		WHERE event_id = $5 AND showtime = $6 AND seat_id = ANY($7) AND status = ANY($8)
		`
		result, err = stx.ExecContext(ctx, query, req.Target, req.BookingID, at, at.Add(r.holdWindow),
			req.EventID, req.Showtime, pq.Array(req.SeatIDs), pq.Array(sources))
	default:
		query := `
		UPDATE seat_inventory
		SET status = $1,
			booking_id = $2,
			sold_at = $3,
			updated_at = $3
		WHERE event_id = $4 AND showtime = $5 AND seat_id = ANY($6) AND status = ANY($7)
		`
		result, err = stx.ExecContext(ctx, query, req.Target, req.BookingID, at,
			req.EventID, req.Showtime, pq.Array(req.SeatIDs), pq.Array(sources))
	}

	if err != nil {
		return fmt.Errorf("failed to claim seats: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected != int64(len(req.SeatIDs)) {
		return fmt.Errorf("%w: claimed %d of %d seats", domain.ErrSeatClaimShortfall, rowsAffected, len(req.SeatIDs))
	}

	return nil
}

func (r *SeatRepository) ListSeats(ctx context.Context, eventID string, showtime time.Time) ([]domain.SeatRecord, error) {
	query := `
	SELECT event_id, showtime, seat_id, zone, price, status, booking_id, reserved_at, reserved_until, sold_at
	FROM seat_inventory
	WHERE event_id = $1 AND showtime = $2
	ORDER BY seat_id
	`

	rows, err := r.db.QueryContext(ctx, query, eventID, showtime)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	seats := []domain.SeatRecord{}
	for rows.Next() {
		var seat domain.SeatRecord
		var bookingID sql.NullString
		var reservedAt, reservedUntil, soldAt sql.NullTime

		if err := rows.Scan(
			&seat.EventID,
			&seat.Showtime,
			&seat.SeatID,
			&seat.Zone,
			&seat.Price,
			&seat.Status,
			&bookingID,
			&reservedAt,
			&reservedUntil,
			&soldAt,
		); err != nil {
			return nil, err
		}

		if bookingID.Valid && bookingID.String != "" {
			id := bookingID.String
			seat.BookingID = &id
		}
		seat.ReservedAt = nullTime(reservedAt)
		seat.ReservedUntil = nullTime(reservedUntil)
		seat.SoldAt = nullTime(soldAt)

		seats = append(seats, seat)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
