package main // Entry point package

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/booking"
	"github.com/iliyamo/studio-booking/internal/config"
	"github.com/iliyamo/studio-booking/internal/database"
	"github.com/iliyamo/studio-booking/internal/handler"
	"github.com/iliyamo/studio-booking/internal/queue"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/router"
	queuepublisher "github.com/iliyamo/studio-booking/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: a nil client disables rate limiting and caching.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and caching disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db, time.Now)
	clients := repository.NewClientRepo(db)
	invites := repository.NewInviteRepo(db)
	studios := repository.NewStudioRepo(db)
	services := repository.NewServiceRepo(db)
	trainers := repository.NewTrainerRepo(db)
	credits := repository.NewCreditRepo(db, time.Now)
	bookings := repository.NewBookingRepo(db, credits, time.Now)
	requests := repository.NewBookingRequestRepo(db)

	manager := booking.NewManager(booking.Deps{
		Clients:    clients,
		Profiles:   users,
		Studios:    studios,
		Services:   services,
		Trainers:   trainers,
		Bookings:   bookings,
		Credits:    credits,
		Requests:   requests,
		Notify:     queuepublisher.New(cfg.RabbitURL),
		HoldTTL:    cfg.HoldTTL,
		RequestTTL: time.Duration(cfg.RequestTTLHours) * time.Hour,
	})

	resolver := &booking.ScopeResolver{Clients: clients, Profiles: users, Studios: studios}

	h := router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, users, tokens, clients, invites),
		Bookings: handler.NewBookingHandler(manager, clients, bookings),
		Credits:  handler.NewCreditsHandler(manager, clients, credits),
		Catalog:  handler.NewCatalogHandler(clients, services, trainers, resolver),
		Requests: handler.NewRequestHandler(manager, clients, requests),
		Owner:    handler.NewOwnerHandler(studios, services, trainers, invites, clients, credits),
		Operator: handler.NewOperatorHandler(bookings, services, trainers),
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, h, cfg, rdb)

	// The notification consumer runs for the life of the process and
	// reconnects on broker failures.
	go func() {
		if err := queue.StartBookingConsumer(cfg.RabbitURL); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
