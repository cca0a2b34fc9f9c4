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

// OwnerHandler covers studio administration: studio setup, catalog
// management, invites and credit grants.
type OwnerHandler struct {
	Studios  *repository.StudioRepo
	Services *repository.ServiceRepo
	Trainers *repository.TrainerRepo
	Invites  *repository.InviteRepo
	Clients  *repository.ClientRepo
	Credits  *repository.CreditRepo
}

func NewOwnerHandler(st *repository.StudioRepo, sv *repository.ServiceRepo, tr *repository.TrainerRepo,
	inv *repository.InviteRepo, cl *repository.ClientRepo, cr *repository.CreditRepo) *OwnerHandler {
	return &OwnerHandler{Studios: st, Services: sv, Trainers: tr, Invites: inv, Clients: cl, Credits: cr}
}

type studioReq struct {
	Name         string                   `json:"name"`
	BookingModel string                   `json:"booking_model"` // SELF_SERVICE | TRAINER_LED
	OpeningHours model.WeeklySchedule     `json:"opening_hours"`
	CancelPolicy model.CancellationPolicy `json:"cancellation_policy"`
	NoShowAction string                   `json:"no_show_action"`
}

func (r *studioReq) normalize() error {
	r.Name = strings.TrimSpace(r.Name)
	switch strings.ToUpper(r.BookingModel) {
	case model.BookingModelTrainerLed:
		r.BookingModel = model.BookingModelTrainerLed
	case model.BookingModelSelfService, "":
		r.BookingModel = model.BookingModelSelfService
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown booking_model")
	}
	return nil
}

// CreateStudio registers the caller's studio.
func (h *OwnerHandler) CreateStudio(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req studioReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := req.normalize(); err != nil {
		return err
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s := &model.Studio{
		OwnerID:      uid,
		Name:         req.Name,
		BookingModel: req.BookingModel,
		OpeningHours: req.OpeningHours,
		CancelPolicy: req.CancelPolicy,
		NoShowAction: req.NoShowAction,
	}
	if err := h.Studios.Create(ctx, s); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, s)
}

// UpdateStudio rewrites schedule, policy and booking model.
func (h *OwnerHandler) UpdateStudio(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid studio id"})
	}
	var req studioReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := req.normalize(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s := &model.Studio{
		Name:         req.Name,
		BookingModel: req.BookingModel,
		OpeningHours: req.OpeningHours,
		CancelPolicy: req.CancelPolicy,
		NoShowAction: req.NoShowAction,
	}
	if err := h.Studios.UpdateSettings(ctx, id, uid, s); err != nil {
		return respondError(c, err)
	}
	out, err := h.Studios.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// MyStudio returns the caller's studio.
func (h *OwnerHandler) MyStudio(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	s, err := h.Studios.GetByOwner(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

type serviceReq struct {
	Name            string `json:"name"`
	DurationMin     int    `json:"duration_min"`
	CreditsRequired int    `json:"credits_required"`
	Public          *bool  `json:"public"`
}

// CreateService adds a bookable session type to the caller's studio.
func (h *OwnerHandler) CreateService(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req serviceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.DurationMin <= 0 || req.CreditsRequired <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, positive duration_min and credits_required required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	studio, err := h.Studios.GetByOwner(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	public := true
	if req.Public != nil {
		public = *req.Public
	}
	svc := &model.Service{
		StudioID:        &studio.ID,
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

type trainerReq struct {
	UserID uint64 `json:"user_id"`
	Name   string `json:"name"`
}

// CreateTrainer attaches a trainer account to the caller's studio.
func (h *OwnerHandler) CreateTrainer(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req trainerReq
	if err := c.Bind(&req); err != nil || req.UserID == 0 || strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	studio, err := h.Studios.GetByOwner(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	t := &model.Trainer{
		UserID:   req.UserID,
		StudioID: &studio.ID,
		Name:     strings.TrimSpace(req.Name),
		Active:   true,
	}
	if err := h.Trainers.Create(ctx, t); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// CreateInvite issues an invite token bound to the caller's studio.
func (h *OwnerHandler) CreateInvite(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var studioID *uint64
	if studio, err := h.Studios.GetByOwner(ctx, uid); err == nil {
		studioID = &studio.ID
	}
	inv, err := h.Invites.Create(ctx, uid, studioID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, inv)
}

type grantReq struct {
	Sessions  int    `json:"sessions"`
	ExpiresAt string `json:"expires_at"` // RFC 3339
	Note      string `json:"note"`
}

// GrantCredits creates a credit lot for a client of the caller's studio.
func (h *OwnerHandler) GrantCredits(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	clientID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid client id"})
	}
	var req grantReq
	if err := c.Bind(&req); err != nil || req.Sessions <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "positive sessions required"})
	}
	expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
	if err != nil || !expiresAt.After(time.Now()) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "expires_at must be a future RFC3339 timestamp"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	lot, err := h.Credits.GrantLot(ctx, uid, clientID, req.Sessions, expiresAt, req.Note)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, lot)
}

type topUpReq struct {
	Sessions int    `json:"sessions"`
	Note     string `json:"note"`
}

// TopUpLot adds sessions to an existing lot.
func (h *OwnerHandler) TopUpLot(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	lotID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}
	var req topUpReq
	if err := c.Bind(&req); err != nil || req.Sessions <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "positive sessions required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	lot, err := h.Credits.AddToLot(ctx, uid, lotID, req.Sessions, req.Note)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, lot)
}

type selfBookReq struct {
	Allowed *bool `json:"allowed"`
}

// SetSelfBooking toggles whether a client may book without trainer
// mediation.
func (h *OwnerHandler) SetSelfBooking(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	clientID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid client id"})
	}
	var req selfBookReq
	if err := c.Bind(&req); err != nil || req.Allowed == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "allowed required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	client, err := h.Clients.GetByID(ctx, clientID)
	if err != nil {
		return respondError(c, err)
	}
	authorized := client.InvitedBy != nil && *client.InvitedBy == uid
	if !authorized && client.StudioID != nil {
		ownerID, err := h.Studios.OwnerID(ctx, *client.StudioID)
		if err == nil && ownerID == uid {
			authorized = true
		}
	}
	if !authorized {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if err := h.Clients.SetSelfBooking(ctx, clientID, *req.Allowed); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"client_id": clientID, "allow_self_book": *req.Allowed})
}
