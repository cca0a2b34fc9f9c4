package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/booking"
	"github.com/iliyamo/studio-booking/internal/repository"
)

// CreditsHandler exposes the client's credit balance and ledger history.
type CreditsHandler struct {
	Manager *booking.Manager
	Clients *repository.ClientRepo
	Credits *repository.CreditRepo
}

func NewCreditsHandler(m *booking.Manager, cl *repository.ClientRepo, cr *repository.CreditRepo) *CreditsHandler {
	return &CreditsHandler{Manager: m, Clients: cl, Credits: cr}
}

// Summary returns the caller's usable credit total, a display health
// bucket and the soonest lot expiry.
func (h *CreditsHandler) Summary(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sum, err := h.Manager.Credits(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	resp := echo.Map{"total": sum.Total, "status": sum.Status}
	if sum.NearestExpiry != nil {
		resp["nearest_expiry"] = sum.NearestExpiry.UTC().Format(time.RFC3339)
	}
	return c.JSON(http.StatusOK, resp)
}

// History returns the caller's most recent ledger entries.
func (h *CreditsHandler) History(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	client, err := h.Clients.GetByUserID(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	entries, err := h.Credits.Usage(ctx, client.ID, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": entries})
}

// Lots returns the caller's credit lots, nearest expiry first.
func (h *CreditsHandler) Lots(c echo.Context) error {
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
	lots, err := h.Credits.Lots(ctx, client.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"lots": lots})
}
