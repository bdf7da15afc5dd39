package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/srgjo27/seat_reservation/internal/core/domain"
	"github.com/srgjo27/seat_reservation/internal/core/ports/mocks"
	"github.com/srgjo27/seat_reservation/internal/core/services"
	"github.com/srgjo27/seat_reservation/internal/platform/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	fixedNow     = time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	showtime     = mustParse("2025-10-10T19:00:00Z")
	scheduleTime = mustParse("2025-10-10T19:00:00+00:00")
)

func mustParse(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

type fixture struct {
	locker    *mocks.Locker
	lock      *mocks.Lock
	uow       *mocks.UnitOfWork
	tx        *mocks.Tx
	schedules *mocks.ScheduleClient
	seats     *mocks.SeatRepository
	bookings  *mocks.BookingRepository
	publisher *mocks.EventPublisher
	svc       *services.BookingService
}

func newFixture(t *testing.T, opts ...services.BookingServiceOption) *fixture {
	f := &fixture{
		locker:    mocks.NewLocker(t),
		lock:      mocks.NewLock(t),
		uow:       mocks.NewUnitOfWork(t),
		tx:        mocks.NewTx(t),
		schedules: mocks.NewScheduleClient(t),
		seats:     mocks.NewSeatRepository(t),
		bookings:  mocks.NewBookingRepository(t),
		publisher: mocks.NewEventPublisher(t),
	}
	opts = append([]services.BookingServiceOption{
		services.WithClock(clock.NewFixed(fixedNow)),
		services.WithPublisher(f.publisher),
	}, opts...)
	f.svc = services.NewBookingService(f.locker, f.uow, f.schedules, f.seats, f.bookings, opts...)
	return f
}

func validRequest() services.ReserveTicketsRequest {
	return services.ReserveTicketsRequest{
		EventID:  "evt-1",
		UserID:   "user-1",
		Showtime: showtime,
		Quantity: 2,
		SeatIDs:  []string{"A1", "A2"},
	}
}

func (f *fixture) expectLock() {
	f.locker.On("Acquire", mock.Anything, "lock:reservation:evt-1", 10*time.Second).Return(f.lock, nil).Once()
	f.lock.On("Release", mock.Anything).Return(nil).Once()
}

func (f *fixture) expectTx() {
	f.uow.On("Begin", mock.Anything).Return(f.tx, nil).Once()
}

func (f *fixture) expectSchedule() {
	f.schedules.On("FetchSchedule", mock.Anything, "evt-1").
		Return(&domain.Schedule{EventID: "evt-1", Showtimes: []time.Time{scheduleTime}}, nil).Once()
}

func (f *fixture) expectAvailable() {
	f.seats.On("CheckAvailability", mock.Anything, f.tx, "evt-1", showtime, []string{"A1", "A2"}).
		Return([]string{}, nil).Once()
}

func (f *fixture) expectInsert(id string) {
	f.bookings.On("Insert", mock.Anything, f.tx, mock.AnythingOfType("*domain.Booking")).
		Run(func(args mock.Arguments) {
			args.Get(2).(*domain.Booking).ID = id
		}).
		Return(nil).Once()
}

func claimFor(bookingID string) interface{} {
	return mock.MatchedBy(func(req domain.ClaimRequest) bool {
		return req.BookingID == bookingID &&
			req.Target == domain.SeatSold &&
			req.EventID == "evt-1" &&
			req.At.Equal(fixedNow) &&
			assert.ObjectsAreEqual([]string{"A1", "A2"}, req.SeatIDs)
	})
}

func TestReserveTickets_Success(t *testing.T) {
	f := newFixture(t)
	f.expectLock()
	f.expectTx()
	f.expectSchedule()
	f.expectAvailable()
	f.expectInsert("bk-1")
	f.seats.On("ClaimSeats", mock.Anything, f.tx, claimFor("bk-1")).Return(nil).Once()
	f.tx.On("Commit").Return(nil).Once()
	f.publisher.On("PublishBookingConfirmed", mock.Anything, mock.MatchedBy(func(b domain.Booking) bool {
		return b.ID == "bk-1" && b.Status == domain.BookingConfirmed
	})).Return(nil).Once()

	resp, err := f.svc.ReserveTickets(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, "bk-1", resp.BookingID)
	assert.Equal(t, "CONFIRMED", resp.Status)
	assert.Equal(t, 2, resp.Quantity)
	assert.Equal(t, []string{"A1", "A2"}, resp.SeatIDs)
	assert.Equal(t, fixedNow, resp.CreatedAt)
	f.tx.AssertNotCalled(t, "Rollback")
}

func TestReserveTickets_ValidationHappensBeforeLock(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(*services.ReserveTicketsRequest)
		field string
	}{
		{"quantity and seat count differ", func(r *services.ReserveTicketsRequest) {
			r.SeatIDs = []string{"A1", "A2", "A3"}
		}, "seat_ids"},
		{"missing event", func(r *services.ReserveTicketsRequest) { r.EventID = "  " }, "event_id"},
		{"missing user", func(r *services.ReserveTicketsRequest) { r.UserID = "" }, "user_id"},
		{"zero quantity", func(r *services.ReserveTicketsRequest) { r.Quantity = 0; r.SeatIDs = nil }, "quantity"},
		{"missing showtime", func(r *services.ReserveTicketsRequest) { r.Showtime = time.Time{} }, "showtime"},
		{"duplicate seat", func(r *services.ReserveTicketsRequest) { r.SeatIDs = []string{"A1", "A1"} }, "seat_ids"},
		{"blank seat", func(r *services.ReserveTicketsRequest) { r.SeatIDs = []string{"A1", " "} }, "seat_ids"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			req := validRequest()
			tc.edit(&req)

			resp, err := f.svc.ReserveTickets(context.Background(), req)

			assert.Nil(t, resp)
			require.Error(t, err)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
			var de *domain.Error
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tc.field, de.Field)
			f.locker.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestReserveTickets_LockFailures(t *testing.T) {
	t.Run("held lock is a conflict", func(t *testing.T) {
		f := newFixture(t)
		f.locker.On("Acquire", mock.Anything, "lock:reservation:evt-1", 10*time.Second).
			Return(nil, domain.ErrLockHeld).Once()

		_, err := f.svc.ReserveTickets(context.Background(), validRequest())

		assert.Equal(t, domain.KindConflict, domain.KindOf(err))
		assert.ErrorIs(t, err, domain.ErrLockHeld)
		assert.True(t, domain.IsRetryable(err))
	})

	t.Run("unreachable lock store fails closed", func(t *testing.T) {
		f := newFixture(t)
		f.locker.On("Acquire", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("dial tcp: connection refused")).Once()

		_, err := f.svc.ReserveTickets(context.Background(), validRequest())

		assert.Equal(t, domain.KindInfrastructure, domain.KindOf(err))
		f.uow.AssertNotCalled(t, "Begin", mock.Anything)
	})
}

func TestReserveTickets_BeginFailureReleasesLock(t *testing.T) {
	f := newFixture(t)
	f.expectLock()
	f.uow.On("Begin", mock.Anything).Return(nil, errors.New("too many connections")).Once()

	_, err := f.svc.ReserveTickets(context.Background(), validRequest())

	assert.Equal(t, domain.KindInfrastructure, domain.KindOf(err))
	f.schedules.AssertNotCalled(t, "FetchSchedule", mock.Anything, mock.Anything)
}

func TestReserveTickets_ScheduleValidation(t *testing.T) {
	t.Run("showtime missing from schedule", func(t *testing.T) {
		f := newFixture(t)
		f.expectLock()
		f.expectTx()
		f.expectSchedule()
		f.tx.On("Rollback").Return(nil).Once()

		req := validRequest()
		req.Showtime = mustParse("2025-10-11T19:00:00Z")
		_, err := f.svc.ReserveTickets(context.Background(), req)

		assert.Equal(t, domain.KindUnavailable, domain.KindOf(err))
		assert.ErrorIs(t, err, domain.ErrShowtimeUnavailable)
		assert.False(t, domain.IsRetryable(err))
	})

	t.Run("empty schedule", func(t *testing.T) {
		f := newFixture(t)
		f.expectLock()
		f.expectTx()
		f.schedules.On("FetchSchedule", mock.Anything, "evt-1").Return(&domain.Schedule{EventID: "evt-1"}, nil).Once()
		f.tx.On("Rollback").Return(nil).Once()

		_, err := f.svc.ReserveTickets(context.Background(), validRequest())

		assert.ErrorIs(t, err, domain.ErrShowtimeUnavailable)
	})

	t.Run("unknown event keeps not found kind", func(t *testing.T) {
		f := newFixture(t)
		f.expectLock()
		f.expectTx()
		f.schedules.On("FetchSchedule", mock.Anything, "evt-1").
			Return(nil, domain.NewNotFoundError("event not found", domain.ErrEventNotFound)).Once()
		f.tx.On("Rollback").Return(nil).Once()

		_, err := f.svc.ReserveTickets(context.Background(), validRequest())

		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	})

	t.Run("raw transport error is infrastructure", func(t *testing.T) {
		f := newFixture(t)
		f.expectLock()
		f.expectTx()
		f.schedules.On("FetchSchedule", mock.Anything, "evt-1").Return(nil, errors.New("EOF")).Once()
		f.tx.On("Rollback").Return(nil).Once()

		_, err := f.svc.ReserveTickets(context.Background(), validRequest())

		assert.Equal(t, domain.KindInfrastructure, domain.KindOf(err))
	})

	t.Run("sub-second showtime noise still matches", func(t *testing.T) {
		f := newFixture(t)
		f.expectLock()
		f.expectTx()
		f.expectSchedule()
		f.expectAvailable()
		f.expectInsert("bk-2")
		f.seats.On("ClaimSeats", mock.Anything, f.tx, claimFor("bk-2")).Return(nil).Once()
		f.tx.On("Commit").Return(nil).Once()
		f.publisher.On("PublishBookingConfirmed", mock.Anything, mock.Anything).Return(nil).Once()

		req := validRequest()
		req.Showtime = showtime.Add(400 * time.Millisecond)
		resp, err := f.svc.ReserveTickets(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, showtime, resp.Showtime)
	})
}

func TestReserveTickets_SeatsAlreadyClaimed(t *testing.T) {
	f := newFixture(t)
	f.expectLock()
	f.expectTx()
	f.expectSchedule()
	f.seats.On("CheckAvailability", mock.Anything, f.tx, "evt-1", showtime, []string{"A1", "A2"}).
		Return([]string{"A1"}, nil).Once()
	f.tx.On("Rollback").Return(nil).Once()

	_, err := f.svc.ReserveTickets(context.Background(), validRequest())

	require.Error(t, err)
	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.KindConflict, de.Kind)
	assert.Equal(t, []string{"A1"}, de.Seats)
	f.bookings.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything)
}

func TestReserveTickets_ClaimShortfallRollsBack(t *testing.T) {
	f := newFixture(t)
	f.expectLock()
	f.expectTx()
	f.expectSchedule()
	f.expectAvailable()
	f.expectInsert("bk-1")
	f.seats.On("ClaimSeats", mock.Anything, f.tx, claimFor("bk-1")).
		Return(domain.ErrSeatClaimShortfall).Once()
	f.tx.On("Rollback").Return(nil).Once()

	resp, err := f.svc.ReserveTickets(context.Background(), validRequest())

	assert.Nil(t, resp)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrSeatClaimShortfall)
	f.tx.AssertNotCalled(t, "Commit")
	f.publisher.AssertNotCalled(t, "PublishBookingConfirmed", mock.Anything, mock.Anything)
}

func TestReserveTickets_LedgerAndCommitFailures(t *testing.T) {
	t.Run("ledger insert", func(t *testing.T) {
		f := newFixture(t)
		f.expectLock()
		f.expectTx()
		f.expectSchedule()
		f.expectAvailable()
		f.bookings.On("Insert", mock.Anything, f.tx, mock.Anything).Return(errors.New("disk full")).Once()
		f.tx.On("Rollback").Return(nil).Once()

		_, err := f.svc.ReserveTickets(context.Background(), validRequest())

		assert.Equal(t, domain.KindInfrastructure, domain.KindOf(err))
	})

	t.Run("commit", func(t *testing.T) {
		f := newFixture(t)
		f.expectLock()
		f.expectTx()
		f.expectSchedule()
		f.expectAvailable()
		f.expectInsert("bk-1")
		f.seats.On("ClaimSeats", mock.Anything, f.tx, mock.Anything).Return(nil).Once()
		f.tx.On("Commit").Return(errors.New("serialization failure")).Once()
		f.tx.On("Rollback").Return(nil).Once()

		resp, err := f.svc.ReserveTickets(context.Background(), validRequest())

		assert.Nil(t, resp)
		assert.Equal(t, domain.KindInfrastructure, domain.KindOf(err))
	})
}

func TestReserveTickets_DeadlineAbortsAfterLock(t *testing.T) {
	f := newFixture(t)
	f.expectLock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.ReserveTickets(ctx, validRequest())

	assert.Equal(t, domain.KindInfrastructure, domain.KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
	f.uow.AssertNotCalled(t, "Begin", mock.Anything)
}

func TestReserveTickets_BestEffortSideEffects(t *testing.T) {
	f := newFixture(t)
	f.locker.On("Acquire", mock.Anything, mock.Anything, mock.Anything).Return(f.lock, nil).Once()
	f.lock.On("Release", mock.Anything).Return(errors.New("redis gone")).Once()
	f.lock.On("Key").Return("lock:reservation:evt-1")
	f.expectTx()
	f.expectSchedule()
	f.expectAvailable()
	f.expectInsert("bk-1")
	f.seats.On("ClaimSeats", mock.Anything, f.tx, mock.Anything).Return(nil).Once()
	f.tx.On("Commit").Return(nil).Once()
	f.publisher.On("PublishBookingConfirmed", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	resp, err := f.svc.ReserveTickets(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, "bk-1", resp.BookingID)
}

func TestReserveTickets_ShowtimeLockScope(t *testing.T) {
	f := newFixture(t, services.WithShowtimeLocks(true), services.WithLockLease(30*time.Second))
	key := "lock:reservation:evt-1:1760122800"
	f.locker.On("Acquire", mock.Anything, key, 30*time.Second).Return(nil, domain.ErrLockHeld).Once()

	_, err := f.svc.ReserveTickets(context.Background(), validRequest())

	assert.ErrorIs(t, err, domain.ErrLockHeld)
}

func TestCancelBooking(t *testing.T) {
	confirmed := func() *domain.Booking {
		return &domain.Booking{ID: "bk-1", EventID: "evt-1", UserID: "user-1", Quantity: 1, SeatIDs: []string{"A1"}, Status: domain.BookingConfirmed}
	}

	t.Run("cancels confirmed booking", func(t *testing.T) {
		f := newFixture(t)
		f.bookings.On("FindByID", mock.Anything, "bk-1").Return(confirmed(), nil).Once()
		f.bookings.On("Cancel", mock.Anything, "bk-1").Return(nil).Once()
		f.publisher.On("PublishBookingCancelled", mock.Anything, mock.Anything).Return(nil).Once()

		resp, err := f.svc.CancelBooking(context.Background(), "bk-1")

		require.NoError(t, err)
		assert.Equal(t, "CANCELLED", resp.Status)
		assert.Equal(t, fixedNow, resp.UpdatedAt)
		f.seats.AssertNotCalled(t, "ClaimSeats", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("already cancelled", func(t *testing.T) {
		f := newFixture(t)
		b := confirmed()
		b.Status = domain.BookingCancelled
		f.bookings.On("FindByID", mock.Anything, "bk-1").Return(b, nil).Once()

		_, err := f.svc.CancelBooking(context.Background(), "bk-1")

		assert.ErrorIs(t, err, domain.ErrBookingCancelled)
		assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	})

	t.Run("lost race to a concurrent cancel", func(t *testing.T) {
		f := newFixture(t)
		f.bookings.On("FindByID", mock.Anything, "bk-1").Return(confirmed(), nil).Once()
		f.bookings.On("Cancel", mock.Anything, "bk-1").
			Return(fmt.Errorf("%w: bk-1", domain.ErrBookingCancelled)).Once()

		_, err := f.svc.CancelBooking(context.Background(), "bk-1")

		assert.ErrorIs(t, err, domain.ErrBookingCancelled)
		assert.Equal(t, domain.KindConflict, domain.KindOf(err))
		f.publisher.AssertNotCalled(t, "PublishBookingCancelled", mock.Anything, mock.Anything)
	})

	t.Run("unknown booking", func(t *testing.T) {
		f := newFixture(t)
		f.bookings.On("FindByID", mock.Anything, "nope").Return(nil, domain.ErrBookingNotFound).Once()

		_, err := f.svc.CancelBooking(context.Background(), "nope")

		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	})
}

func TestReadOperations(t *testing.T) {
	t.Run("get booking", func(t *testing.T) {
		f := newFixture(t)
		f.bookings.On("FindByID", mock.Anything, "bk-1").
			Return(&domain.Booking{ID: "bk-1", Status: domain.BookingConfirmed}, nil).Once()

		resp, err := f.svc.GetBooking(context.Background(), "bk-1")

		require.NoError(t, err)
		assert.Equal(t, "bk-1", resp.BookingID)
	})

	t.Run("list user bookings", func(t *testing.T) {
		f := newFixture(t)
		f.bookings.On("FindByUser", mock.Anything, "user-1").
			Return([]domain.Booking{{ID: "bk-2"}, {ID: "bk-1"}}, nil).Once()

		resp, err := f.svc.ListUserBookings(context.Background(), "user-1")

		require.NoError(t, err)
		require.Len(t, resp, 2)
		assert.Equal(t, "bk-2", resp[0].BookingID)
	})

	t.Run("list seats normalizes showtime", func(t *testing.T) {
		f := newFixture(t)
		f.seats.On("ListSeats", mock.Anything, "evt-1", showtime).
			Return([]domain.SeatRecord{{SeatID: "A1", Status: domain.SeatAvailable}}, nil).Once()

		seats, err := f.svc.ListSeats(context.Background(), "evt-1", showtime.Add(250*time.Millisecond))

		require.NoError(t, err)
		assert.Len(t, seats, 1)
	})

	t.Run("blank ids are rejected", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.GetBooking(context.Background(), "")
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))

		_, err = f.svc.ListUserBookings(context.Background(), " ")
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))

		_, err = f.svc.ListSeats(context.Background(), "evt-1", time.Time{})
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	})
}
