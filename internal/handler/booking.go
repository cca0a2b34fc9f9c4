package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/booking"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
)

// BookingHandler exposes the client-facing booking lifecycle.
type BookingHandler struct {
	Manager  *booking.Manager
	Clients  *repository.ClientRepo
	Bookings *repository.BookingRepo
}

func NewBookingHandler(m *booking.Manager, cl *repository.ClientRepo, b *repository.BookingRepo) *BookingHandler {
	return &BookingHandler{Manager: m, Clients: cl, Bookings: b}
}

type bookReq struct {
	ServiceID   uint64 `json:"service_id"`
	TrainerID   uint64 `json:"trainer_id"`
	ScheduledAt string `json:"scheduled_at"` // RFC 3339
}

type bookingPart struct {
	ID            uint64     `json:"id"`
	ServiceID     uint64     `json:"service_id"`
	TrainerID     uint64     `json:"trainer_id"`
	ScheduledAt   time.Time  `json:"scheduled_at"`
	DurationMin   int        `json:"duration_min"`
	CreditsUsed   int        `json:"credits_used"`
	Status        string     `json:"status"`
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty"`
}

func toBookingPart(b *model.Booking) bookingPart {
	return bookingPart{
		ID:            b.ID,
		ServiceID:     b.ServiceID,
		TrainerID:     b.TrainerID,
		ScheduledAt:   b.ScheduledAt,
		DurationMin:   b.DurationMin,
		CreditsUsed:   b.CreditsUsed,
		Status:        b.Status,
		HoldExpiresAt: b.HoldExpiresAt,
	}
}

func parseBookReq(c echo.Context) (booking.CreateInput, bool) {
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return booking.CreateInput{}, false
	}
	if req.ServiceID == 0 || req.TrainerID == 0 {
		return booking.CreateInput{}, false
	}
	at, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		return booking.CreateInput{}, false
	}
	return booking.CreateInput{ServiceID: req.ServiceID, TrainerID: req.TrainerID, ScheduledAt: at.UTC()}, true
}

// Create books a session directly.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	in, ok := parseBookReq(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "service_id, trainer_id and RFC3339 scheduled_at required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	b, remaining, err := h.Manager.Create(ctx, uid, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"booking":           toBookingPart(b),
		"credits_remaining": remaining,
	})
}

// Hold reserves the slot provisionally without consuming credits.
func (h *BookingHandler) Hold(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	in, ok := parseBookReq(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "service_id, trainer_id and RFC3339 scheduled_at required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	b, err := h.Manager.Hold(ctx, uid, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking": toBookingPart(b)})
}

// Confirm promotes a soft hold, debiting the credits.
func (h *BookingHandler) Confirm(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	b, remaining, err := h.Manager.ConfirmHold(ctx, uid, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking":           toBookingPart(b),
		"credits_remaining": remaining,
	})
}

// Cancel cancels the booking and reports how many credits came back.
func (h *BookingHandler) Cancel(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	refunded, err := h.Manager.Cancel(ctx, uid, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":           model.StatusCancelled,
		"credits_refunded": refunded,
	})
}

// Get returns one of the caller's bookings.
func (h *BookingHandler) Get(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	client, err := h.Clients.GetByUserID(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	b, err := h.Bookings.GetForClient(ctx, id, client.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingPart(b))
}

// Mine lists the caller's bookings, newest session first.
func (h *BookingHandler) Mine(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	client, err := h.Clients.GetByUserID(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	list, err := h.Bookings.ListByClient(ctx, client.ID)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]bookingPart, 0, len(list))
	for i := range list {
		out = append(out, toBookingPart(&list[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}
