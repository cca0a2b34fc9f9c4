// Package handler contains the HTTP handlers.  Handlers bind and
// validate request bodies, call into repositories or the booking
// manager, and translate domain errors into JSON responses.
package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/booking"
	"github.com/iliyamo/studio-booking/internal/credit"
	"github.com/iliyamo/studio-booking/internal/repository"
)

// currentUser extracts the authenticated user id stored by the JWT
// middleware.
func currentUser(c echo.Context) (uint64, bool) {
	id, ok := c.Get("user_id").(uint64)
	return id, ok
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// respondError maps domain errors onto HTTP responses.  Anything not in
// the domain vocabulary is logged and reported as a generic 500 so
// internals never leak to clients.
func respondError(c echo.Context, err error) error {
	var (
		verr   *booking.ValidationError
		insuff *credit.InsufficientCreditsError
	)
	switch {
	case errors.As(err, &insuff):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":     "insufficient credits",
			"required":  insuff.Required,
			"available": insuff.Available,
		})
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Reason})
	case errors.Is(err, booking.ErrWithinWindowNoPolicy):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cancellation window passed and no refund tier applies"})
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, sql.ErrNoRows):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, booking.ErrForbidden), errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, booking.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	default:
		c.Logger().Errorf("internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
