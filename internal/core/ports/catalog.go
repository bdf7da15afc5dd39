package ports

import (
	"context"

	"github.com/srgjo27/seat_reservation/internal/core/domain"
)

type ScheduleClient interface {
	FetchSchedule(ctx context.Context, eventID string) (*domain.Schedule, error)
}

type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, booking domain.Booking) error
	PublishBookingCancelled(ctx context.Context, booking domain.Booking) error
}
