// Package rabbitmq publishes booking lifecycle events to durable queues.
// Publishing happens after the reservation has committed, so failures are
// reported to the caller for logging and never undo a booking.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/srgjo27/seat_reservation/internal/core/domain"
)

const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueBookingCancelled = "booking.cancelled"
)

type BookingEvent struct {
	Type       string   `json:"type"`
	BookingID  string   `json:"booking_id"`
	EventID    string   `json:"event_id"`
	UserID     string   `json:"user_id"`
	Showtime   string   `json:"showtime"`
	Quantity   int      `json:"quantity"`
	SeatIDs    []string `json:"seat_ids"`
	Status     string   `json:"status"`
	OccurredAt string   `json:"occurred_at"`
}

func newBookingEvent(queue string, b domain.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:       queue,
		BookingID:  b.ID,
		EventID:    b.EventID,
		UserID:     b.UserID,
		Showtime:   b.Showtime.UTC().Format(time.RFC3339),
		Quantity:   b.Quantity,
		SeatIDs:    b.SeatIDs,
		Status:     string(b.Status),
		OccurredAt: at.UTC().Format(time.RFC3339Nano),
	}
}

type Publisher struct {
	url string
	now func() time.Time

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url string) *Publisher {
	return &Publisher{url: url, now: time.Now}
}

func (p *Publisher) PublishBookingConfirmed(ctx context.Context, booking domain.Booking) error {
	return p.publish(ctx, QueueBookingConfirmed, newBookingEvent(QueueBookingConfirmed, booking, p.now()))
}

func (p *Publisher) PublishBookingCancelled(ctx context.Context, booking domain.Booking) error {
	return p.publish(ctx, QueueBookingCancelled, newBookingEvent(QueueBookingCancelled, booking, p.now()))
}

func (p *Publisher) publish(ctx context.Context, queue string, ev BookingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal %s: %w", queue, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channelLocked()
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue name
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    p.now().UTC(),
			MessageId:    ev.BookingID + ":" + queue,
			Body:         body,
		},
	)
	if err != nil {
		p.resetLocked()
		return fmt.Errorf("rabbitmq: publish %s: %w", queue, err)
	}
	return nil
}

// channelLocked dials lazily and redials after the connection drops.
func (p *Publisher) channelLocked() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.resetLocked()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: channel open: %w", err)
	}

	for _, q := range []string{QueueBookingConfirmed, QueueBookingCancelled} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("rabbitmq: queue declare %s: %w", q, err)
		}
	}

	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	return nil
}
