package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/srgjo27/seat_reservation/internal/core/domain"
	"github.com/srgjo27/seat_reservation/internal/core/ports"
)

type BookingRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Insert writes the booking header and one booking_seats row per seat inside
// tx. A missing ID is filled with a fresh UUID.
func (r *BookingRepository) Insert(ctx context.Context, tx ports.Tx, booking *domain.Booking) error {
	stx, err := sqlTx(tx)
	if err != nil {
		return err
	}

	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}

	queryHeader := `
	INSERT INTO bookings (id, event_id, user_id, showtime, quantity, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = stx.ExecContext(ctx, queryHeader, booking.ID, booking.EventID, booking.UserID, booking.Showtime,
		booking.Quantity, booking.Status, booking.CreatedAt, booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert booking header: %w", err)
	}

	querySeat := `
	INSERT INTO booking_seats (booking_id, seat_id, position)
	VALUES ($1, $2, $3)
	`

	stmt, err := stx.PrepareContext(ctx, querySeat)
	if err != nil {
		return fmt.Errorf("failed to prepare seat statement: %w", err)
	}

	defer stmt.Close()

	for i, seatID := range booking.SeatIDs {
		if _, err := stmt.ExecContext(ctx, booking.ID, seatID, i); err != nil {
			return fmt.Errorf("failed to insert booking seat %s: %w", seatID, err)
		}
	}

	return nil
}

func (r *BookingRepository) FindByID(ctx context.Context, bookingID string) (*domain.Booking, error) {
	query := `
	SELECT id, event_id, user_id, showtime, quantity, status, created_at, updated_at
	FROM bookings
	WHERE id = $1
	`

	var b domain.Booking
	err := r.db.QueryRowContext(ctx, query, bookingID).Scan(
		&b.ID,
		&b.EventID,
		&b.UserID,
		&b.Showtime,
		&b.Quantity,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrBookingNotFound, bookingID)
		}

		return nil, err
	}

	seats, err := r.seatsFor(ctx, []string{b.ID})
	if err != nil {
		return nil, err
	}
	b.SeatIDs = seats[b.ID]

	return &b, nil
}

func (r *BookingRepository) FindByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	query := `
	SELECT id, event_id, user_id, showtime, quantity, status, created_at, updated_at
	FROM bookings
	WHERE user_id = $1
	ORDER BY created_at DESC, id
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	bookings := []domain.Booking{}
	var ids []string
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.EventID, &b.UserID, &b.Showtime, &b.Quantity, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}

		bookings = append(bookings, b)
		ids = append(ids, b.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return bookings, nil
	}

	seats, err := r.seatsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range bookings {
		bookings[i].SeatIDs = seats[bookings[i].ID]
	}

	return bookings, nil
}

// UpdateStatus applies a status transition only when the row currently holds
// one of the statuses allowed to move into status.
func (r *BookingRepository) UpdateStatus(ctx context.Context, bookingID string, status domain.BookingStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid booking status %q", status)
	}

	from := domain.BookingTransitionSources(status)
	if from == nil {
		return fmt.Errorf("%w: %s to %s", domain.ErrBookingTransition, bookingID, status)
	}
	sources := make([]string, len(from))
	for i, s := range from {
		sources[i] = string(s)
	}

	query := `
	UPDATE bookings
	SET status = $1, updated_at = $2
	WHERE id = $3 AND status = ANY($4)
	`

	result, err := r.db.ExecContext(ctx, query, status, r.now(), bookingID, pq.Array(sources))
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return r.transitionFailure(ctx, bookingID, status)
	}

	return nil
}

// transitionFailure tells a missing booking apart from one whose current
// status does not allow the transition.
func (r *BookingRepository) transitionFailure(ctx context.Context, bookingID string, status domain.BookingStatus) error {
	var current domain.BookingStatus
	err := r.db.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = $1`, bookingID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrBookingNotFound, bookingID)
	}
	if err != nil {
		return err
	}
	return domain.BookingTransitionError(bookingID, current, status)
}

func (r *BookingRepository) Cancel(ctx context.Context, bookingID string) error {
	return r.UpdateStatus(ctx, bookingID, domain.BookingCancelled)
}

func (r *BookingRepository) seatsFor(ctx context.Context, bookingIDs []string) (map[string][]string, error) {
	query := `
	SELECT booking_id, seat_id
	FROM booking_seats
	WHERE booking_id = ANY($1)
	ORDER BY booking_id, position
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(bookingIDs))
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	seats := make(map[string][]string, len(bookingIDs))
	for rows.Next() {
		var bookingID, seatID string
		if err := rows.Scan(&bookingID, &seatID); err != nil {
			return nil, err
		}

		seats[bookingID] = append(seats[bookingID], seatID)
	}

	return seats, rows.Err()
}
