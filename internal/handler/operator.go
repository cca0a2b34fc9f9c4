package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
)

// OperatorHandler covers operations shared by trainers and owners:
// session lists and attendance transitions.
type OperatorHandler struct {
	Bookings *repository.BookingRepo
	Services *repository.ServiceRepo
	Trainers *repository.TrainerRepo
}

func NewOperatorHandler(b *repository.BookingRepo, sv *repository.ServiceRepo, tr *repository.TrainerRepo) *OperatorHandler {
	return &OperatorHandler{Bookings: b, Services: sv, Trainers: tr}
}

// ListBookings returns the sessions visible to the operator.
func (h *OperatorHandler) ListBookings(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Bookings.ListForOperator(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]bookingPart, 0, len(list))
	for i := range list {
		out = append(out, toBookingPart(&list[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// attendance maps route suffixes to target statuses.
var attendance = map[string]string{
	"check-in": model.StatusCheckedIn,
	"complete": model.StatusCompleted,
	"no-show":  model.StatusNoShow,
	"late":     model.StatusLate,
}

// MarkAttendance applies a check-in, complete, no-show or late
// transition to a session.
func (h *OperatorHandler) MarkAttendance(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	action := strings.ToLower(c.Param("action"))
	target, ok := attendance[action]
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown action"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.UpdateStatusForOperator(ctx, id, uid, target)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingPart(b))
}

// DeleteBooking removes a session outright.  No credits move; clients
// use cancellation for the refunded path.
func (h *OperatorHandler) DeleteBooking(c echo.Context) error {
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

	if err := h.Bookings.HardDelete(ctx, id, uid); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type trainerServiceReq struct {
	Name            string `json:"name"`
	DurationMin     int    `json:"duration_min"`
	CreditsRequired int    `json:"credits_required"`
	Public          *bool  `json:"public"`
}

// CreateService lets a trainer publish their own session type.  Staff
// trainers attach it to their studio; solo trainers own it directly.
func (h *OperatorHandler) CreateService(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req trainerServiceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.DurationMin <= 0 || req.CreditsRequired <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, positive duration_min and credits_required required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var studioID *uint64
	if t, err := h.Trainers.GetByUserID(ctx, uid); err == nil {
		studioID = t.StudioID
	}
	public := true
	if req.Public != nil {
		public = *req.Public
	}
	svc := &model.Service{
		StudioID:        studioID,
		CreatedBy:       &uid,
		Name:            req.Name,
		DurationMin:     req.DurationMin,
		CreditsRequired: req.CreditsRequired,
		Active:          true,
		Public:          public,
	}
	if err := h.Services.Create(ctx, svc); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, svc)
}
