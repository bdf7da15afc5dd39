package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/srgjo27/seat_reservation/internal/core/domain"
	"github.com/srgjo27/seat_reservation/internal/core/ports"
	"github.com/srgjo27/seat_reservation/internal/platform/clock"
)

const (
	defaultLockLease = 10 * time.Second
	releaseTimeout   = 2 * time.Second
)

type ReserveTicketsRequest struct {
	EventID  string    `json:"event_id"`
	UserID   string    `json:"user_id"`
	Showtime time.Time `json:"showtime"`
	Quantity int       `json:"quantity"`
	SeatIDs  []string  `json:"seat_ids"`
}

type BookingResult struct {
	BookingID string    `json:"booking_id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Showtime  time.Time `json:"showtime"`
	Quantity  int       `json:"quantity"`
	SeatIDs   []string  `json:"seat_ids"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newBookingResult(b domain.Booking) *BookingResult {
	return &BookingResult{
		BookingID: b.ID,
		EventID:   b.EventID,
		UserID:    b.UserID,
		Showtime:  b.Showtime,
		Quantity:  b.Quantity,
		SeatIDs:   b.SeatIDs,
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

type BookingService struct {
	locker      ports.Locker
	uow         ports.UnitOfWork
	schedules   ports.ScheduleClient
	seatRepo    ports.SeatRepository
	bookingRepo ports.BookingRepository
	publisher   ports.EventPublisher

	clock       clock.Clock
	log         zerolog.Logger
	lease       time.Duration
	lockPerShow bool
}

type BookingServiceOption func(*BookingService)

func WithClock(c clock.Clock) BookingServiceOption {
	return func(s *BookingService) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithLogger(l zerolog.Logger) BookingServiceOption {
	return func(s *BookingService) { s.log = l }
}

// WithLockLease sets how long the per-event lock is held before it can be
// reclaimed. It must exceed the worst-case reservation latency.
func WithLockLease(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.lease = d
		}
	}
}

// WithShowtimeLocks narrows the lock from one per event to one per
// event and showtime.
func WithShowtimeLocks(enabled bool) BookingServiceOption {
	return func(s *BookingService) { s.lockPerShow = enabled }
}

func WithPublisher(p ports.EventPublisher) BookingServiceOption {
	return func(s *BookingService) {
		if p != nil {
			s.publisher = p
		}
	}
}

func NewBookingService(
	locker ports.Locker,
	uow ports.UnitOfWork,
	schedules ports.ScheduleClient,
	seatRepo ports.SeatRepository,
	bookingRepo ports.BookingRepository,
	opts ...BookingServiceOption,
) *BookingService {
	s := &BookingService{
		locker:      locker,
		uow:         uow,
		schedules:   schedules,
		seatRepo:    seatRepo,
		bookingRepo: bookingRepo,
		publisher:   noopPublisher{},
		clock:       clock.NewSystem(),
		log:         zerolog.Nop(),
		lease:       defaultLockLease,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type reservationState string

const (
	stateStart                 reservationState = "START"
	stateLockAcquired          reservationState = "LOCK_ACQUIRED"
	stateTxOpen                reservationState = "TX_OPEN"
	stateScheduleValidated     reservationState = "SCHEDULE_VALIDATED"
	stateAvailabilityConfirmed reservationState = "AVAILABILITY_CONFIRMED"
	stateLedgerWritten         reservationState = "LEDGER_WRITTEN"
	stateSeatsClaimed          reservationState = "SEATS_CLAIMED"
	stateCommitted             reservationState = "COMMITTED"
)

// ReserveTickets books req.SeatIDs for req.UserID in one unit of work under
// the event lock. Every failure is a *domain.Error; on failure the unit of
// work has been rolled back and the lock released before returning.
func (s *BookingService) ReserveTickets(ctx context.Context, req ReserveTicketsRequest) (result *BookingResult, err error) {
	req, err = normalizeRequest(req)
	if err != nil {
		return nil, err
	}

	state := stateStart
	log := s.log.With().Str("event_id", req.EventID).Str("user_id", req.UserID).Logger()
	defer func() {
		if err != nil {
			log.Warn().
				Err(err).
				Str("state", string(state)).
				Str("error_kind", string(domain.KindOf(err))).
				Msg("reservation failed")
		}
	}()

	lock, err := s.locker.Acquire(ctx, s.lockKey(req), s.lease)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return nil, domain.NewConflictError("another reservation for this event is in progress", err)
		}
		return nil, infraError("lock store unavailable", err)
	}
	state = stateLockAcquired
	defer s.releaseLock(ctx, lock, log)

	if err := ctx.Err(); err != nil {
		return nil, infraError("reservation aborted", err)
	}

	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, infraError("failed to begin transaction", err)
	}
	state = stateTxOpen
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("rollback failed")
		}
	}()

	schedule, err := s.schedules.FetchSchedule(ctx, req.EventID)
	if err != nil {
		return nil, scheduleError(err)
	}
	if schedule == nil || !schedule.HasShowtime(req.Showtime) {
		return nil, domain.NewUnavailableError("showtime not available", domain.ErrShowtimeUnavailable)
	}
	state = stateScheduleValidated

	taken, err := s.seatRepo.CheckAvailability(ctx, tx, req.EventID, req.Showtime, req.SeatIDs)
	if err != nil {
		return nil, infraError("failed to check seat availability", err)
	}
	if len(taken) > 0 {
		return nil, domain.NewConflictError("seats already claimed", domain.ErrSeatsUnavailable, taken...)
	}
	state = stateAvailabilityConfirmed

	now := s.clock.Now()
	booking := &domain.Booking{
		EventID:   req.EventID,
		UserID:    req.UserID,
		Showtime:  req.Showtime,
		Quantity:  req.Quantity,
		Status:    domain.BookingConfirmed,
		CreatedAt: now,
		UpdatedAt: now,
		SeatIDs:   req.SeatIDs,
	}
	if err := s.bookingRepo.Insert(ctx, tx, booking); err != nil {
		return nil, infraError("failed to write booking", err)
	}
	state = stateLedgerWritten

	err = s.seatRepo.ClaimSeats(ctx, tx, domain.ClaimRequest{
		EventID:   req.EventID,
		Showtime:  req.Showtime,
		SeatIDs:   req.SeatIDs,
		BookingID: booking.ID,
		Target:    domain.SeatSold,
		At:        now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrSeatClaimShortfall) {
			return nil, domain.NewConflictError("seats were claimed by a concurrent reservation", err)
		}
		return nil, infraError("failed to claim seats", err)
	}
	state = stateSeatsClaimed

	if err := ctx.Err(); err != nil {
		return nil, infraError("reservation aborted", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, infraError("failed to commit reservation", err)
	}
	committed = true
	state = stateCommitted

	log.Info().Str("booking_id", booking.ID).Str("state", string(state)).Int("seats", len(booking.SeatIDs)).Msg("reservation committed")

	if pubErr := s.publisher.PublishBookingConfirmed(ctx, *booking); pubErr != nil {
		log.Warn().Err(pubErr).Str("booking_id", booking.ID).Msg("failed to publish booking.confirmed")
	}

	return newBookingResult(*booking), nil
}

func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (*BookingResult, error) {
	if strings.TrimSpace(bookingID) == "" {
		return nil, domain.NewValidationError("booking_id", "booking_id is required")
	}
	b, err := s.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, ledgerError("failed to load booking", err)
	}
	return newBookingResult(*b), nil
}

func (s *BookingService) ListUserBookings(ctx context.Context, userID string) ([]BookingResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.NewValidationError("user_id", "user_id is required")
	}
	bookings, err := s.bookingRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, ledgerError("failed to list bookings", err)
	}

	results := make([]BookingResult, 0, len(bookings))
	for _, b := range bookings {
		results = append(results, *newBookingResult(b))
	}
	return results, nil
}

// CancelBooking marks a confirmed booking CANCELLED. The ledger applies the
// transition conditionally, so of two concurrent cancels only one succeeds.
// Seat rows are left as they are; releasing them belongs to a separate process.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID string) (*BookingResult, error) {
	if strings.TrimSpace(bookingID) == "" {
		return nil, domain.NewValidationError("booking_id", "booking_id is required")
	}
	b, err := s.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, ledgerError("failed to load booking", err)
	}
	if b.IsCancelled() {
		return nil, domain.NewConflictError("booking already cancelled", domain.ErrBookingCancelled)
	}

	if err := s.bookingRepo.Cancel(ctx, bookingID); err != nil {
		return nil, ledgerError("failed to cancel booking", err)
	}
	b.Status = domain.BookingCancelled
	b.UpdatedAt = s.clock.Now()

	s.log.Info().Str("booking_id", b.ID).Str("event_id", b.EventID).Msg("booking cancelled")
	if pubErr := s.publisher.PublishBookingCancelled(ctx, *b); pubErr != nil {
		s.log.Warn().Err(pubErr).Str("booking_id", b.ID).Msg("failed to publish booking.cancelled")
	}

	return newBookingResult(*b), nil
}

func (s *BookingService) ListSeats(ctx context.Context, eventID string, showtime time.Time) ([]domain.SeatRecord, error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, domain.NewValidationError("event_id", "event_id is required")
	}
	if showtime.IsZero() {
		return nil, domain.NewValidationError("showtime", "showtime is required")
	}
	seats, err := s.seatRepo.ListSeats(ctx, eventID, showtime.UTC().Truncate(time.Second))
	if err != nil {
		return nil, infraError("failed to list seats", err)
	}
	return seats, nil
}

func (s *BookingService) lockKey(req ReserveTicketsRequest) string {
	if s.lockPerShow {
		return fmt.Sprintf("lock:reservation:%s:%d", req.EventID, req.Showtime.Unix())
	}
	return fmt.Sprintf("lock:reservation:%s", req.EventID)
}

// releaseLock runs on a context detached from the caller's cancellation so a
// timed-out request still gives the lock back.
func (s *BookingService) releaseLock(ctx context.Context, lock ports.Lock, log zerolog.Logger) {
	relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	if err := lock.Release(relCtx); err != nil {
		log.Warn().Err(err).Str("lock_key", lock.Key()).Msg("failed to release lock")
	}
}

func normalizeRequest(req ReserveTicketsRequest) (ReserveTicketsRequest, error) {
	req.EventID = strings.TrimSpace(req.EventID)
	req.UserID = strings.TrimSpace(req.UserID)

	if req.EventID == "" {
		return req, domain.NewValidationError("event_id", "event_id is required")
	}
	if req.UserID == "" {
		return req, domain.NewValidationError("user_id", "user_id is required")
	}
	if req.Showtime.IsZero() {
		return req, domain.NewValidationError("showtime", "showtime is required")
	}
	if req.Quantity <= 0 {
		return req, domain.NewValidationError("quantity", "quantity must be greater than zero")
	}
	if len(req.SeatIDs) != req.Quantity {
		return req, domain.NewValidationError("seat_ids",
			fmt.Sprintf("seat_ids count (%d) must equal quantity (%d)", len(req.SeatIDs), req.Quantity))
	}

	seen := make(map[string]struct{}, len(req.SeatIDs))
	seats := make([]string, 0, len(req.SeatIDs))
	for _, id := range req.SeatIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return req, domain.NewValidationError("seat_ids", "seat_ids must not contain empty values")
		}
		if _, dup := seen[id]; dup {
			return req, domain.NewValidationError("seat_ids", fmt.Sprintf("seat %s requested more than once", id))
		}
		seen[id] = struct{}{}
		seats = append(seats, id)
	}
	req.SeatIDs = seats
	req.Showtime = req.Showtime.UTC().Truncate(time.Second)

	return req, nil
}

func scheduleError(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return infraError("catalog service unavailable", err)
}

func ledgerError(msg string, err error) error {
	switch {
	case errors.Is(err, domain.ErrBookingNotFound):
		return domain.NewNotFoundError("booking not found", err)
	case errors.Is(err, domain.ErrBookingCancelled):
		return domain.NewConflictError("booking already cancelled", err)
	case errors.Is(err, domain.ErrBookingTransition):
		return domain.NewConflictError("booking status cannot change", err)
	}
	return infraError(msg, err)
}

func infraError(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.NewInfrastructureError(msg+": request deadline exceeded", err)
	}
	return domain.NewInfrastructureError(msg, err)
}

type noopPublisher struct{}

func (noopPublisher) PublishBookingConfirmed(context.Context, domain.Booking) error { return nil }
func (noopPublisher) PublishBookingCancelled(context.Context, domain.Booking) error { return nil }
