// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/studio-booking/internal/config"
	"github.com/iliyamo/studio-booking/internal/handler"
	"github.com/iliyamo/studio-booking/internal/middleware"
	"github.com/iliyamo/studio-booking/internal/model"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Auth     *handler.AuthHandler
	Bookings *handler.BookingHandler
	Credits  *handler.CreditsHandler
	Catalog  *handler.CatalogHandler
	Requests *handler.RequestHandler
	Owner    *handler.OwnerHandler
	Operator *handler.OperatorHandler
}

// Register mounts all routes.  Unauthenticated operations live under
// /v1/auth; everything else requires a valid access token.  Trainer and
// owner surfaces get their own role-gated groups.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	// Distributed rate limiting applies to the whole API surface.
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/refresh-access", h.Auth.RefreshAccess)
	auth.POST("/logout", h.Auth.Logout)

	// Protected client surface.
	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(cfg.JWTSecret))
	v1.Use(middleware.RequireRole(model.RoleOwner, model.RoleTrainer, model.RoleClient))
	v1.GET("/me", h.Auth.Me)

	v1.POST("/bookings", h.Bookings.Create)
	v1.POST("/bookings/hold", h.Bookings.Hold)
	v1.POST("/bookings/:id/confirm", h.Bookings.Confirm)
	v1.DELETE("/bookings/:id", h.Bookings.Cancel)
	v1.GET("/bookings/:id", h.Bookings.Get)
	v1.GET("/my-bookings", h.Bookings.Mine)

	v1.GET("/credits", h.Credits.Summary)
	v1.GET("/credits/history", h.Credits.History)
	v1.GET("/credits/lots", h.Credits.Lots)

	v1.POST("/booking-requests", h.Requests.Create)
	v1.GET("/booking-requests", h.Requests.Mine)

	// Catalog reads are cached per user.
	catalog := e.Group("/v1")
	catalog.Use(middleware.JWTAuth(cfg.JWTSecret))
	catalog.Use(middleware.RequireRole(model.RoleOwner, model.RoleTrainer, model.RoleClient))
	catalog.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	catalog.GET("/services", h.Catalog.ListServices)
	catalog.GET("/trainers", h.Catalog.ListTrainers)

	// Trainer surface, shared with owners.
	trainer := e.Group("/v1/trainer")
	trainer.Use(middleware.JWTAuth(cfg.JWTSecret))
	trainer.Use(middleware.RequireRole(model.RoleTrainer, model.RoleOwner))
	trainer.GET("/requests", h.Requests.Inbox)
	trainer.POST("/requests/:id/accept", h.Requests.Accept)
	trainer.POST("/requests/:id/decline", h.Requests.Decline)
	trainer.GET("/bookings", h.Operator.ListBookings)
	trainer.POST("/bookings/:id/:action", h.Operator.MarkAttendance)
	trainer.DELETE("/bookings/:id", h.Operator.DeleteBooking)
	trainer.POST("/services", h.Operator.CreateService)

	// Owner surface.
	owner := e.Group("/v1/owner")
	owner.Use(middleware.JWTAuth(cfg.JWTSecret))
	owner.Use(middleware.RequireRole(model.RoleOwner))
	owner.POST("/studios", h.Owner.CreateStudio)
	owner.PUT("/studios/:id", h.Owner.UpdateStudio)
	owner.GET("/studio", h.Owner.MyStudio)
	owner.POST("/services", h.Owner.CreateService)
	owner.POST("/trainers", h.Owner.CreateTrainer)
	owner.POST("/invites", h.Owner.CreateInvite)
	owner.POST("/clients/:id/credits", h.Owner.GrantCredits)
	owner.PUT("/clients/:id/self-booking", h.Owner.SetSelfBooking)
	owner.POST("/lots/:id/add", h.Owner.TopUpLot)
}
