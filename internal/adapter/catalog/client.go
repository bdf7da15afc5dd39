// Package catalog reads event schedules from the catalog service.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/srgjo27/seat_reservation/internal/core/domain"
)

const maxBodyBytes = 1 << 20

type schedulePayload struct {
	EventID   string   `json:"event_id"`
	Title     string   `json:"title"`
	Showtimes []string `json:"showtimes"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchSchedule returns a NotFound error for unknown events and an
// Infrastructure error for anything the caller may retry.
func (c *Client) FetchSchedule(ctx context.Context, eventID string) (*domain.Schedule, error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, domain.NewValidationError("event_id", "event_id is required")
	}

	endpoint := fmt.Sprintf("%s/events/%s/schedule", c.baseURL, url.PathEscape(eventID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domain.NewInfrastructureError("failed to build catalog request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.NewInfrastructureError("catalog service unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.NewNotFoundError(fmt.Sprintf("event %s not found", eventID), domain.ErrEventNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, domain.NewInfrastructureError(
			fmt.Sprintf("catalog service returned status %d", resp.StatusCode),
			errors.New(resp.Status))
	}

	var payload schedulePayload
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&payload); err != nil {
		return nil, domain.NewInfrastructureError("invalid catalog schedule payload", err)
	}

	schedule := &domain.Schedule{
		EventID:   eventID,
		Title:     payload.Title,
		Showtimes: make([]time.Time, 0, len(payload.Showtimes)),
	}
	for _, raw := range payload.Showtimes {
		t, err := domain.ParseInstant(raw)
		if err != nil {
			return nil, domain.NewInfrastructureError("invalid showtime in catalog schedule", err)
		}
		schedule.Showtimes = append(schedule.Showtimes, t)
	}

	return schedule, nil
}
