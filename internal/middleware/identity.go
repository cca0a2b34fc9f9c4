package middleware

// identity.go holds small helpers shared across middleware files.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID returns the authenticated user's id as a string for use
// in cache and rate-limit keys, or "anon" when unauthenticated.
func currentUserID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case uint64:
		return strconv.FormatUint(v, 10)
	case string:
		if v != "" {
			return v
		}
	}
	return "anon"
}
