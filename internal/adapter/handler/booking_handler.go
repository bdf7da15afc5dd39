package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/srgjo27/seat_reservation/internal/core/domain"
	"github.com/srgjo27/seat_reservation/internal/core/services"
)

type BookingHandler struct {
	svc *services.BookingService
}

func NewBookingHandler(svc *services.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

func (h *BookingHandler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	e.POST("/bookings", h.ReserveTickets)
	e.GET("/bookings/:id", h.GetBooking)
	e.POST("/bookings/:id/cancel", h.CancelBooking)
	e.GET("/users/:id/bookings", h.ListUserBookings)
	e.GET("/events/:id/seats", h.ListSeats)
}

type reserveTicketsBody struct {
	EventID  string   `json:"event_id"`
	UserID   string   `json:"user_id"`
	Showtime string   `json:"showtime"`
	Quantity int      `json:"quantity"`
	SeatIDs  []string `json:"seat_ids"`
}

type errorBody struct {
	Kind      domain.ErrorKind `json:"kind"`
	Message   string           `json:"message"`
	Field     string           `json:"field,omitempty"`
	Seats     []string         `json:"seats,omitempty"`
	Retryable bool             `json:"retryable"`
}

func (h *BookingHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func (h *BookingHandler) ReserveTickets(c echo.Context) error {
	var body reserveTicketsBody
	if err := c.Bind(&body); err != nil {
		return writeError(c, domain.NewValidationError("body", "invalid json body"))
	}

	showtime, err := domain.ParseInstant(body.Showtime)
	if err != nil {
		return writeError(c, domain.NewValidationError("showtime", "showtime must be an RFC 3339 timestamp"))
	}

	resp, err := h.svc.ReserveTickets(c.Request().Context(), services.ReserveTicketsRequest{
		EventID:  body.EventID,
		UserID:   body.UserID,
		Showtime: showtime,
		Quantity: body.Quantity,
		SeatIDs:  body.SeatIDs,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, resp)
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	resp, err := h.svc.GetBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) CancelBooking(c echo.Context) error {
	resp, err := h.svc.CancelBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) ListUserBookings(c echo.Context) error {
	resp, err := h.svc.ListUserBookings(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": resp})
}

func (h *BookingHandler) ListSeats(c echo.Context) error {
	raw := strings.TrimSpace(c.QueryParam("showtime"))
	if raw == "" {
		return writeError(c, domain.NewValidationError("showtime", "showtime query parameter is required"))
	}
	showtime, err := domain.ParseInstant(raw)
	if err != nil {
		return writeError(c, domain.NewValidationError("showtime", "showtime must be an RFC 3339 timestamp"))
	}

	seats, err := h.svc.ListSeats(c.Request().Context(), c.Param("id"), showtime)
	if err != nil {
		return writeError(c, err)
	}

	out := make([]echo.Map, 0, len(seats))
	for _, s := range seats {
		item := echo.Map{
			"seat_id": s.SeatID,
			"zone":    s.Zone,
			"price":   s.Price,
			"status":  s.Status,
		}
		if s.ReservedUntil != nil {
			item["reserved_until"] = s.ReservedUntil
		}
		out = append(out, item)
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": c.Param("id"), "showtime": showtime, "seats": out})
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindUnavailable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusServiceUnavailable
	}
}

func writeError(c echo.Context, err error) error {
	kind := domain.KindOf(err)
	body := errorBody{Kind: kind, Retryable: domain.IsRetryable(err)}

	var de *domain.Error
	if errors.As(err, &de) {
		body.Message = de.Message
		body.Field = de.Field
		body.Seats = de.Seats
	}
	if kind == domain.KindInfrastructure || body.Message == "" {
		body.Message = "service temporarily unavailable"
	}

	return c.JSON(statusFor(kind), echo.Map{"error": body})
}
