package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/unifyevents/backend/internal/auth"
)

// Context keys populated by CookieAuth for downstream middleware and
// handlers.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// CookieAuth returns an Echo middleware that validates the access-token
// cookie and injects the authenticated subject into the request context.
// The token travels in an HTTP-only cookie rather than an Authorization
// header, so browser JavaScript never touches it. Missing or invalid
// tokens answer 401; there is deliberately no blacklist lookup here
// (access tokens are short-lived and not individually revocable).
func CookieAuth(svc *auth.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(auth.AccessCookie)
			if err != nil || cookie.Value == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			sub, err := svc.Validate(cookie.Value)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(CtxUserID, sub.UserID)
			c.Set(CtxRole, sub.Role)
			return next(c)
		}
	}
}

// SubjectFrom reads the authenticated subject out of the context. ok is
// false when CookieAuth did not run on this route.
func SubjectFrom(c echo.Context) (auth.Subject, bool) {
	id, okID := c.Get(CtxUserID).(uint64)
	role, okRole := c.Get(CtxRole).(string)
	if !okID || !okRole {
		return auth.Subject{}, false
	}
	return auth.Subject{UserID: id, Role: role}, true
}
