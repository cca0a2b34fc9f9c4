package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/booking"
	"github.com/iliyamo/studio-booking/internal/repository"
)

// CatalogHandler lists the services and trainers visible to the caller's
// tenant scope.  Responses are cacheable; the cache middleware keys on
// the user so scopes never bleed into each other.
type CatalogHandler struct {
	Clients  *repository.ClientRepo
	Services *repository.ServiceRepo
	Trainers *repository.TrainerRepo
	Resolver *booking.ScopeResolver
}

func NewCatalogHandler(cl *repository.ClientRepo, sv *repository.ServiceRepo, tr *repository.TrainerRepo, res *booking.ScopeResolver) *CatalogHandler {
	return &CatalogHandler{Clients: cl, Services: sv, Trainers: tr, Resolver: res}
}

func (h *CatalogHandler) scope(c echo.Context) ([]uint64, error) {
	uid, ok := currentUser(c)
	if !ok {
		return nil, echo.ErrUnauthorized
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	client, err := h.Clients.GetByUserID(ctx, uid)
	if err != nil {
		return nil, err
	}
	return h.Resolver.Resolve(ctx, client)
}

// Services lists the active public services in the caller's scope.
func (h *CatalogHandler) ListServices(c echo.Context) error {
	scope, err := h.scope(c)
	if err != nil {
		if err == echo.ErrUnauthorized {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	list, err := h.Services.ListInScope(ctx, scope)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"services": list})
}

// Trainers lists the active trainers in the caller's scope.
func (h *CatalogHandler) ListTrainers(c echo.Context) error {
	scope, err := h.scope(c)
	if err != nil {
		if err == echo.ErrUnauthorized {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	list, err := h.Trainers.ListInScope(ctx, scope)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"trainers": list})
}
