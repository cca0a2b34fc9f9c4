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

// RequestHandler covers the trainer-led flow: clients file booking
// requests with candidate windows, trainers accept one window or
// decline.
type RequestHandler struct {
	Manager  *booking.Manager
	Clients  *repository.ClientRepo
	Requests *repository.BookingRequestRepo
}

func NewRequestHandler(m *booking.Manager, cl *repository.ClientRepo, rq *repository.BookingRequestRepo) *RequestHandler {
	return &RequestHandler{Manager: m, Clients: cl, Requests: rq}
}

type requestReq struct {
	ServiceID uint64   `json:"service_id"`
	TrainerID uint64   `json:"trainer_id"`
	Windows   []string `json:"windows"` // RFC 3339 candidate start times
}

// Create files a request.
func (h *RequestHandler) Create(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req requestReq
	if err := c.Bind(&req); err != nil || req.ServiceID == 0 || req.TrainerID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "service_id, trainer_id and windows required"})
	}
	windows := make([]model.CandidateWindow, 0, len(req.Windows))
	for _, w := range req.Windows {
		at, err := time.Parse(time.RFC3339, w)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "windows must be RFC3339 timestamps"})
		}
		windows = append(windows, model.CandidateWindow{StartsAt: at.UTC()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	out, err := h.Manager.Request(ctx, uid, booking.RequestInput{
		ServiceID: req.ServiceID,
		TrainerID: req.TrainerID,
		Windows:   windows,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"request": out})
}

// Mine lists the caller's requests.
func (h *RequestHandler) Mine(c echo.Context) error {
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
	list, err := h.Requests.ListByClient(ctx, client.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": list})
}

// Inbox lists pending requests addressed to the calling trainer.
func (h *RequestHandler) Inbox(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Requests.ListForTrainerUser(ctx, uid, time.Now().UTC())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": list})
}

type acceptReq struct {
	WindowIndex int `json:"window_index"`
}

// Accept turns a pending request into a confirmed booking at one of the
// proposed windows.
func (h *RequestHandler) Accept(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
	}
	var req acceptReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	b, err := h.Manager.AcceptRequest(ctx, uid, id, req.WindowIndex)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking": toBookingPart(b)})
}

// Decline rejects a pending request.
func (h *RequestHandler) Decline(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Manager.DeclineRequest(ctx, uid, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": model.RequestDeclined})
}
