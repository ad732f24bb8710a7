package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/unifyevents/backend/internal/auth"
)

func mintAccess(t *testing.T, secret string, userID uint64, role string) string {
	t.Helper()
	now := time.Now().UTC()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(10 * time.Minute).Unix(),
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return raw
}

func authRequest(t *testing.T, svc *auth.Service, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	next := func(c echo.Context) error {
		sub, ok := SubjectFrom(c)
		if !ok {
			t.Fatal("subject missing after CookieAuth")
		}
		return c.JSON(http.StatusOK, echo.Map{"id": sub.UserID, "role": sub.Role})
	}
	if err := CookieAuth(svc)(next)(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	return rec
}

func TestCookieAuthAcceptsValidAccessToken(t *testing.T) {
	svc := auth.NewService("test-secret", 10, 1, false, nil, nil)
	token := mintAccess(t, "test-secret", 9, "organiser")

	rec := authRequest(t, svc, &http.Cookie{Name: auth.AccessCookie, Value: token})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestCookieAuthRejectsMissingCookie(t *testing.T) {
	svc := auth.NewService("test-secret", 10, 1, false, nil, nil)

	rec := authRequest(t, svc, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCookieAuthRejectsTamperedToken(t *testing.T) {
	svc := auth.NewService("test-secret", 10, 1, false, nil, nil)
	token := mintAccess(t, "other-secret", 9, "admin")

	rec := authRequest(t, svc, &http.Cookie{Name: auth.AccessCookie, Value: token})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	mw := RequireRole("organiser", "admin")

	cases := []struct {
		role string
		want int
	}{
		{"organiser", http.StatusOK},
		{"admin", http.StatusOK},
		{"participant", http.StatusForbidden},
		{"", http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/v1/events", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if tc.role != "" {
			c.Set(CtxUserID, uint64(1))
			c.Set(CtxRole, tc.role)
		}
		if err := mw(next)(c); err != nil {
			t.Fatalf("role %q: middleware error: %v", tc.role, err)
		}
		if rec.Code != tc.want {
			t.Fatalf("role %q: status = %d, want %d", tc.role, rec.Code, tc.want)
		}
	}
}
