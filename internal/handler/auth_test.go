package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/unifyevents/backend/internal/auth"
	"github.com/unifyevents/backend/internal/config"
	"github.com/unifyevents/backend/internal/repository"
	"github.com/unifyevents/backend/internal/utils"
)

func newAuthEnv(t *testing.T) (*AuthHandler, *auth.Service, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	users := repository.NewUserRepo(db)
	blacklist := repository.NewBlacklistRepo(db)
	svc := auth.NewService("test-secret", 10, 1, false, users, blacklist)
	cfg := config.Config{Env: "test", BcryptCost: bcrypt.MinCost}
	return NewAuthHandler(cfg, svc, users), svc, mock, func() { db.Close() }
}

func aliceRows(t *testing.T, password string) *sqlmock.Rows {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "role", "is_active", "created_at", "updated_at"}).
		AddRow(7, "alice", "alice@example.com", hash, "participant", true, now, now)
}

func doJSON(t *testing.T, h echo.HandlerFunc, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func TestLoginSuccessSetsCookies(t *testing.T) {
	h, _, mock, done := newAuthEnv(t)
	defer done()

	mock.ExpectQuery("SELECT .* FROM users WHERE username").
		WithArgs("alice").
		WillReturnRows(aliceRows(t, "secret"))

	rec := doJSON(t, h.Login, http.MethodPost, "/v1/auth/login",
		`{"username":"alice","password":"secret"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Fatalf("success = %v, want true", body["success"])
	}
	user, _ := body["user"].(map[string]any)
	if user["username"] != "alice" || user["role"] != "participant" || user["id"] != float64(7) {
		t.Fatalf("unexpected user payload: %v", user)
	}

	access := cookieByName(rec, auth.AccessCookie)
	refresh := cookieByName(rec, auth.RefreshCookie)
	if access == nil || access.Value == "" || refresh == nil || refresh.Value == "" {
		t.Fatal("expected both auth cookies to be set")
	}
	if !access.HttpOnly || access.Path != "/" {
		t.Fatalf("access cookie attributes wrong: %+v", access)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	h, _, mock, done := newAuthEnv(t)
	defer done()

	mock.ExpectQuery("SELECT .* FROM users WHERE username").
		WithArgs("alice").
		WillReturnRows(aliceRows(t, "secret"))

	rec := doJSON(t, h.Login, http.MethodPost, "/v1/auth/login",
		`{"username":"alice","password":"wrong"}`)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != false || body["message"] != "Invalid credentials" {
		t.Fatalf("unexpected body: %v", body)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("no cookies may be set on failed login")
	}
}

func TestRefreshWithoutCookie(t *testing.T) {
	h, _, _, done := newAuthEnv(t)
	defer done()

	rec := doJSON(t, h.Refresh, http.MethodPost, "/v1/auth/refresh", "")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["refreshed"] != false || body["message"] != "No refresh token" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestRefreshRotatesPair(t *testing.T) {
	h, svc, mock, done := newAuthEnv(t)
	defer done()

	// Log in once to obtain a genuine refresh token.
	mock.ExpectQuery("SELECT .* FROM users WHERE username").
		WithArgs("alice").
		WillReturnRows(aliceRows(t, "secret"))
	_, pair, err := svc.Issue(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	mock.ExpectExec("INSERT IGNORE INTO token_blacklist").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT .* FROM users WHERE id").
		WillReturnRows(aliceRows(t, "secret"))

	rec := doJSON(t, h.Refresh, http.MethodPost, "/v1/auth/refresh", "",
		&http.Cookie{Name: auth.RefreshCookie, Value: pair.Refresh})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["refreshed"] != true {
		t.Fatalf("unexpected body: %v", body)
	}
	refresh := cookieByName(rec, auth.RefreshCookie)
	if refresh == nil || refresh.Value == "" || refresh.Value == pair.Refresh {
		t.Fatal("expected a rotated refresh cookie")
	}

	// The consumed token cannot be redeemed again.
	mock.ExpectExec("INSERT IGNORE INTO token_blacklist").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec = doJSON(t, h.Refresh, http.MethodPost, "/v1/auth/refresh", "",
		&http.Cookie{Name: auth.RefreshCookie, Value: pair.Refresh})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("replay status = %d, want 401", rec.Code)
	}
	if body := decodeBody(t, rec); body["refreshed"] != false || body["message"] != "Invalid refresh token" {
		t.Fatalf("unexpected replay body: %v", body)
	}
}

func TestLogoutAlwaysSucceeds(t *testing.T) {
	h, _, _, done := newAuthEnv(t)
	defer done()

	// An unparsable refresh cookie must not fail the logout.
	rec := doJSON(t, h.Logout, http.MethodPost, "/v1/auth/logout", "",
		&http.Cookie{Name: auth.RefreshCookie, Value: "garbage"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := decodeBody(t, rec); body["success"] != true {
		t.Fatalf("unexpected body: %v", body)
	}

	access := cookieByName(rec, auth.AccessCookie)
	refresh := cookieByName(rec, auth.RefreshCookie)
	if access == nil || access.Value != "" || refresh == nil || refresh.Value != "" {
		t.Fatal("expected both cookies to be cleared")
	}
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	h, svc, mock, done := newAuthEnv(t)
	defer done()

	mock.ExpectQuery("SELECT .* FROM users WHERE username").
		WithArgs("alice").
		WillReturnRows(aliceRows(t, "secret"))
	_, pair, err := svc.Issue(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	mock.ExpectExec("INSERT IGNORE INTO token_blacklist").
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := doJSON(t, h.Logout, http.MethodPost, "/v1/auth/logout", "",
		&http.Cookie{Name: auth.RefreshCookie, Value: pair.Refresh})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("revoke was not persisted: %v", err)
	}
}
