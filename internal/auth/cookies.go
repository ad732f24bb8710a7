package auth

import (
	"net/http"
	"time"
)

// Cookie names shared with the frontend. Both are HttpOnly and scoped to
// path "/"; the frontend never reads them, it only relies on the browser
// sending them back.
const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// cookie builds one auth cookie. SameSite=None is required for the
// cross-site production deployment (frontend and API on different
// origins) and browsers only accept it together with Secure; local dev
// runs plain HTTP so it falls back to Lax.
func (s *Service) cookie(name, value string, exp time.Time) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if s.CookieSecure {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   s.CookieSecure,
		SameSite: sameSite,
	}
}

// Attach writes both tokens of a pair into the response cookies.
func (s *Service) Attach(w http.ResponseWriter, pair TokenPair) {
	http.SetCookie(w, s.cookie(AccessCookie, pair.Access, pair.AccessExp))
	http.SetCookie(w, s.cookie(RefreshCookie, pair.Refresh, pair.RefreshExp))
}

// ClearCookies expires both auth cookies regardless of their current
// state. Used on logout.
func (s *Service) ClearCookies(w http.ResponseWriter) {
	expired := time.Unix(0, 0)
	http.SetCookie(w, s.cookie(AccessCookie, "", expired))
	http.SetCookie(w, s.cookie(RefreshCookie, "", expired))
}
