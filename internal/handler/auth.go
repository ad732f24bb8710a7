package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/unifyevents/backend/internal/auth"
	"github.com/unifyevents/backend/internal/config"
	"github.com/unifyevents/backend/internal/middleware"
	"github.com/unifyevents/backend/internal/model"
	"github.com/unifyevents/backend/internal/repository"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg   config.Config
	Auth  *auth.Service
	Users *repository.UserRepo
}

func NewAuthHandler(cfg config.Config, a *auth.Service, u *repository.UserRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Auth: a, Users: u}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"` // participant | organiser | admin
}
type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type userPart struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func userSummary(u model.User) userPart {
	return userPart{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

// Register creates a user account. The client is not logged in
// automatically; the frontend follows up with a login call.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = model.RoleParticipant
	}
	if !model.ValidRole(role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Username, req.Email, req.Password, role, h.Cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrUsernameExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	return c.JSON(http.StatusCreated, userPart{ID: uid, Username: req.Username, Email: req.Email, Role: role})
}

// Login verifies credentials and writes the token pair into HTTP-only
// cookies. The response body never distinguishes unknown user from wrong
// password.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, pair, err := h.Auth.Issue(ctx, req.Username, req.Password)
	if err != nil {
		if err == auth.ErrInvalidCredentials {
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"success": false,
				"message": "Invalid credentials",
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	h.Auth.Attach(c.Response(), pair)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    userSummary(u),
	})
}

// Refresh rotates the refresh token from the cookie and re-issues both
// cookies. A 401 with refreshed:false tells the frontend to force a fresh
// login.
func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(auth.RefreshCookie)
	if err != nil || cookie.Value == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"refreshed": false,
			"message":   "No refresh token",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pair, err := h.Auth.Refresh(ctx, cookie.Value)
	if err != nil {
		if err == auth.ErrInvalidToken || err == auth.ErrMissingToken {
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"refreshed": false,
				"message":   "Invalid refresh token",
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}

	h.Auth.Attach(c.Response(), pair)
	return c.JSON(http.StatusOK, echo.Map{"refreshed": true})
}

// Logout revokes the refresh token (best effort) and clears both cookies.
// The client is always told the logout succeeded: an already-invalid
// session failing to revoke is not worth surfacing.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if cookie, err := c.Cookie(auth.RefreshCookie); err == nil && cookie.Value != "" {
		// Intentionally ignored: parse or insert failures must not block
		// the logout.
		_ = h.Auth.Revoke(ctx, cookie.Value)
	}

	h.Auth.ClearCookies(c.Response())
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Me returns the authenticated user's summary. Doubles as the frontend's
// session probe.
func (h *AuthHandler) Me(c echo.Context) error {
	sub, ok := middleware.SubjectFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, sub.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, userSummary(u))
}
