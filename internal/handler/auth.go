package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/config"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg     config.Config
	Users   *repository.UserRepo
	Tokens  *repository.TokenRepo
	Clients *repository.ClientRepo
	Invites *repository.InviteRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, cl *repository.ClientRepo, inv *repository.InviteRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Clients: cl, Invites: inv}
}

// ----- DTOs -----

type registerReq struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role"`         // OWNER | TRAINER | CLIENT
	InviteToken string `json:"invite_token"` // optional, binds a client to the inviter's studio
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Register creates a user and returns tokens immediately.  Clients get
// their booking identity in the same call: with a valid invite token the
// identity is bound to the inviter and, when known, the studio; without
// one the client starts unscoped and the scope resolver fills it in when
// the inviter becomes known.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	switch role {
	case model.RoleOwner, model.RoleTrainer, model.RoleClient:
	default:
		role = model.RoleClient
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var inv *model.Invite
	if role == model.RoleClient && req.InviteToken != "" {
		var err error
		inv, err = h.Invites.GetByToken(ctx, req.InviteToken)
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown invite token"})
		}
		if err != nil {
			return respondError(c, err)
		}
	}

	uid, err := h.Users.Create(ctx, req.Email, req.Password, role, h.Cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrEmailExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	if role == model.RoleClient {
		var invitedBy, studioID *uint64
		if inv != nil {
			invitedBy = &inv.InviterID
			studioID = inv.StudioID
		}
		if _, err := h.Clients.CreateForUser(ctx, uid, invitedBy, studioID); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create client failed"})
		}
		if inv != nil {
			if err := h.Invites.MarkUsed(ctx, inv.ID); err != nil {
				c.Logger().Warnf("mark invite %d used: %v", inv.ID, err)
			}
		}
	}

	return h.issueTokens(c, ctx, uid, req.Email, role, http.StatusCreated)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err == sql.ErrNoRows || (err == nil && !utils.CheckPassword(u.PasswordHash, req.Password)) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return respondError(c, err)
	}
	if !u.IsActive {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
	}
	return h.issueTokens(c, ctx, u.ID, u.Email, u.Role, http.StatusOK)
}

// Refresh rotates the refresh token: the presented token is revoked and
// a fresh pair is issued.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hash := utils.HashRefreshRaw(req.RefreshToken)
	uid, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return respondError(c, err)
	}
	return h.issueTokens(c, ctx, u.ID, u.Email, u.Role, http.StatusOK)
}

// RefreshAccess issues a new access token only, leaving the refresh
// token untouched.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Tokens.ValidateRefresh(ctx, utils.HashRefreshRaw(req.RefreshToken))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	ttl := time.Duration(h.Cfg.AccessTTLMin) * time.Minute
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, ttl)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access": tokenPart{Token: access, Expires: time.Now().UTC().Add(ttl)},
	})
}

// Logout revokes the presented refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(req.RefreshToken)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "logged out"})
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, userPart{ID: u.ID, Email: u.Email, Role: u.Role})
}

func (h *AuthHandler) issueTokens(c echo.Context, ctx context.Context, uid uint64, email, role string, status int) error {
	accessTTL := time.Duration(h.Cfg.AccessTTLMin) * time.Minute
	refreshTTL := time.Duration(h.Cfg.RefreshTTLDays) * 24 * time.Hour
	now := time.Now().UTC()

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, uid, role, accessTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	refresh, err := utils.NewRefreshToken()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
	}
	refreshExp := now.Add(refreshTTL)
	if err := h.Tokens.StoreRefresh(ctx, uid, utils.HashRefreshRaw(refresh), refreshExp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
	}

	return c.JSON(status, authResp{
		User:    userPart{ID: uid, Email: email, Role: role},
		Access:  tokenPart{Token: access, Expires: now.Add(accessTTL)},
		Refresh: tokenPart{Token: refresh, Expires: refreshExp}, // raw back to client
	})
}
