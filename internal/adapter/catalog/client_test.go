package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/srgjo27/seat_reservation/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/events/evt-1/schedule", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchSchedule(t *testing.T) {
	t.Run("mixed timestamp encodings", func(t *testing.T) {
		srv := newServer(t, http.StatusOK, `{"event_id":"evt-1","title":"Concert","showtimes":["2025-10-10T19:00:00+00:00","2025-10-12 20:30:00"]}`)
		client := NewClient(srv.URL+"/", time.Second)

		sched, err := client.FetchSchedule(context.Background(), "evt-1")

		require.NoError(t, err)
		assert.Equal(t, "Concert", sched.Title)
		require.Len(t, sched.Showtimes, 2)
		assert.True(t, sched.HasShowtime(time.Date(2025, 10, 10, 19, 0, 0, 0, time.UTC)))
		assert.True(t, sched.HasShowtime(time.Date(2025, 10, 12, 20, 30, 0, 0, time.UTC)))
		assert.False(t, sched.HasShowtime(time.Date(2025, 10, 11, 19, 0, 0, 0, time.UTC)))
	})

	t.Run("unknown event is permanent", func(t *testing.T) {
		srv := newServer(t, http.StatusNotFound, `{"error":"not found"}`)

		_, err := NewClient(srv.URL, time.Second).FetchSchedule(context.Background(), "evt-1")

		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
		assert.ErrorIs(t, err, domain.ErrEventNotFound)
		assert.False(t, domain.IsRetryable(err))
	})

	t.Run("server error is retryable", func(t *testing.T) {
		srv := newServer(t, http.StatusBadGateway, `upstream down`)

		_, err := NewClient(srv.URL, time.Second).FetchSchedule(context.Background(), "evt-1")

		assert.Equal(t, domain.KindInfrastructure, domain.KindOf(err))
		assert.True(t, domain.IsRetryable(err))
	})

	t.Run("garbage payload", func(t *testing.T) {
		srv := newServer(t, http.StatusOK, `{"showtimes":["next friday"]}`)

		_, err := NewClient(srv.URL, time.Second).FetchSchedule(context.Background(), "evt-1")

		assert.Equal(t, domain.KindInfrastructure, domain.KindOf(err))
	})

	t.Run("unreachable service", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := NewClient(url, time.Second).FetchSchedule(context.Background(), "evt-1")

		assert.Equal(t, domain.KindInfrastructure, domain.KindOf(err))
	})

	t.Run("caller deadline is honoured", func(t *testing.T) {
		block := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-block:
			case <-r.Context().Done():
			}
		}))
		t.Cleanup(func() {
			close(block)
			srv.Close()
		})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := NewClient(srv.URL, 5*time.Second).FetchSchedule(ctx, "evt-1")

		assert.Equal(t, domain.KindInfrastructure, domain.KindOf(err))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
