package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/performance-reporting/internal/config"
	"github.com/iliyamo/performance-reporting/internal/hierarchy"
	"github.com/iliyamo/performance-reporting/internal/model"
	"github.com/iliyamo/performance-reporting/internal/repository"
	"github.com/iliyamo/performance-reporting/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg        config.Config
	Users      *repository.UserRepo
	Tokens     *repository.TokenRepo
	Resolver   *hierarchy.Resolver
	Situations *repository.SituationRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo,
	r *hierarchy.Resolver, s *repository.SituationRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Resolver: r, Situations: s}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type profileReq struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID            uint64 `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Role          string `json:"role"`
	StructureCode string `json:"structure_code,omitempty"`
	StructureKind string `json:"structure_kind"`
	IsSuperAdmin  bool   `json:"is_super_admin"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// classify resolves the home assignment of an account once, at token
// issue time.  Admins and accounts without a structure code are
// global; everyone else is pinned to whatever their code denotes.
func (h *AuthHandler) classify(ctx context.Context, u *model.User) (model.Assignment, error) {
	if u.Role == model.RoleAdmin || strings.TrimSpace(u.StructureCode) == "" {
		return model.Assignment{Kind: model.KindGlobal}, nil
	}
	kind, _, err := h.Resolver.Resolve(ctx, u.StructureCode)
	if err != nil {
		return model.Assignment{}, err
	}
	return model.Assignment{Kind: kind, Code: u.StructureCode}, nil
}

func (h *AuthHandler) issuePair(ctx context.Context, u *model.User, sid string) (*authResp, error) {
	home, err := h.classify(ctx, u)
	if err != nil {
		return nil, err
	}
	p := model.Principal{UserID: u.ID, Role: u.Role, Home: home, IsSuperAdmin: u.IsSuperAdmin}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, p, sid, h.Cfg.AccessTTLMin)
	if err != nil {
		return nil, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return nil, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return nil, err
	}
	return &authResp{
		User: userPart{
			ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName,
			Role: u.Role, StructureCode: u.StructureCode, StructureKind: home.Kind.String(),
			IsSuperAdmin: u.IsSuperAdmin,
		},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// Login verifies credentials, rotates the session token (kicking any
// other live session) and returns a fresh token pair.  Inactive
// accounts are rejected with the same message as bad credentials.
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
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	sid, err := utils.NewSessionID()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue session failed"})
	}
	if err := h.Users.RotateSessionToken(ctx, u.ID, sid); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rotate session failed"})
	}

	resp, err := h.issuePair(ctx, u, sid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh validates the presented refresh token by hash, revokes it
// and issues a new pair bound to the account's current session.  A
// refresh after someone else logged in fails at the next request, not
// here: the session check lives in the auth middleware.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	_ = h.Tokens.RevokeByHash(ctx, hash)

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil || !u.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}

	resp, err := h.issuePair(ctx, u, u.SessionToken)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes every refresh token of the caller and clears the
// session token, invalidating outstanding access tokens immediately.
func (h *AuthHandler) Logout(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tokens.RevokeAllForUser(ctx, p.UserID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	// An empty session token never matches a sid claim.
	if err := h.Users.RotateSessionToken(ctx, p.UserID, ""); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's profile plus the rejected-situation
// notifications shown right after login.
func (h *AuthHandler) Me(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, p.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	rejected, err := h.Situations.ListRejectedByOwner(ctx, p.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load notifications failed"})
	}
	notifications := make([]echo.Map, 0, len(rejected))
	for _, s := range rejected {
		notifications = append(notifications, echo.Map{
			"situation_id": s.ID,
			"month":        s.Month,
			"year":         s.Year,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user": userPart{
			ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName,
			Role: u.Role, StructureCode: u.StructureCode, StructureKind: p.Home.Kind.String(),
			IsSuperAdmin: u.IsSuperAdmin,
		},
		"rejected_situations": notifications,
	})
}

// UpdateProfile lets the caller change their own contact fields.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req profileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.UpdateProfile(ctx, p.UserID, req.FirstName, req.LastName, req.Phone); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
