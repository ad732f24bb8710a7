// Package auth implements the token service: issuing, rotating, revoking
// and validating the access/refresh JWT pair carried in HTTP-only cookies.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/unifyevents/backend/internal/model"
	"github.com/unifyevents/backend/internal/repository"
	"github.com/unifyevents/backend/internal/utils"
)

// ErrInvalidCredentials is returned by Issue on unknown username or wrong
// password. The two cases are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrMissingToken is returned when a required cookie is absent or empty.
var ErrMissingToken = errors.New("missing token")

// ErrInvalidToken covers malformed, badly signed, expired and blacklisted
// tokens. Handlers translate it to 401.
var ErrInvalidToken = errors.New("invalid token")

// dummyHash is a valid bcrypt digest compared against when the username is
// unknown, so both login failure paths cost one bcrypt comparison.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Subject identifies the authenticated caller of a request.
type Subject struct {
	UserID uint64
	Role   string
}

// TokenPair is one issued access/refresh pair. Both tokens are HS256 JWTs
// signed with the same server secret; the refresh token additionally
// carries a jti so it can be blacklisted after use.
type TokenPair struct {
	Access     string
	Refresh    string
	AccessExp  time.Time
	RefreshExp time.Time
}

// Service issues and validates token pairs. All fields are set once at
// startup and never mutated.
type Service struct {
	Secret       []byte
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	CookieSecure bool

	Users     *repository.UserRepo
	Blacklist *repository.BlacklistRepo
}

// NewService wires the token service from configuration values.
func NewService(secret string, accessTTLMin, refreshTTLDays int, cookieSecure bool,
	users *repository.UserRepo, blacklist *repository.BlacklistRepo) *Service {
	return &Service{
		Secret:       []byte(secret),
		AccessTTL:    time.Duration(accessTTLMin) * time.Minute,
		RefreshTTL:   time.Duration(refreshTTLDays) * 24 * time.Hour,
		CookieSecure: cookieSecure,
		Users:        users,
		Blacklist:    blacklist,
	}
}

// Issue verifies the credentials and mints a fresh pair. The returned user
// is the authenticated account, suitable for the login response body.
func (s *Service) Issue(ctx context.Context, username, password string) (model.User, TokenPair, error) {
	u, err := s.Users.GetByUsername(ctx, username)
	if err != nil {
		if err == sql.ErrNoRows {
			// Burn a comparison so an unknown username costs the same
			// as a wrong password.
			utils.VerifyPassword(dummyHash, password)
			return model.User{}, TokenPair{}, ErrInvalidCredentials
		}
		return model.User{}, TokenPair{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) || !u.IsActive {
		return model.User{}, TokenPair{}, ErrInvalidCredentials
	}
	pair, err := s.mintPair(u.ID, u.Role)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	return u, pair, nil
}

// Refresh redeems a refresh token for a new pair. The presented token's jti
// is claimed into the blacklist before anything is minted; the claim is a
// single atomic insert, so a concurrent double redemption of one token
// yields exactly one new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if refreshToken == "" {
		return TokenPair{}, ErrMissingToken
	}
	userID, jti, exp, err := s.parseRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}
	if err := s.Blacklist.Claim(ctx, jti, exp); err != nil {
		if err == repository.ErrTokenConsumed {
			return TokenPair{}, ErrInvalidToken
		}
		return TokenPair{}, err
	}
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return TokenPair{}, ErrInvalidToken
		}
		return TokenPair{}, err
	}
	if !u.IsActive {
		return TokenPair{}, ErrInvalidToken
	}
	return s.mintPair(u.ID, u.Role)
}

// Validate checks an access token's signature and expiry and extracts the
// subject. Access tokens are short-lived and not individually revocable, so
// no blacklist lookup happens here.
func (s *Service) Validate(accessToken string) (Subject, error) {
	if accessToken == "" {
		return Subject{}, ErrMissingToken
	}
	claims, err := s.parse(accessToken)
	if err != nil {
		return Subject{}, ErrInvalidToken
	}
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return Subject{}, ErrInvalidToken
	}
	role, _ := claims["role"].(string)
	if role == "" {
		return Subject{}, ErrInvalidToken
	}
	return Subject{UserID: uint64(sub), Role: role}, nil
}

// Revoke blacklists the presented refresh token's jti. Parse failures are
// reported so the caller can decide to ignore them; logging out an already
// invalid session is not worth failing the request over.
func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return ErrMissingToken
	}
	_, jti, exp, err := s.parseRefresh(refreshToken)
	if err != nil {
		return ErrInvalidToken
	}
	if err := s.Blacklist.Claim(ctx, jti, exp); err != nil && err != repository.ErrTokenConsumed {
		return err
	}
	return nil
}

// mintPair signs a new access and refresh token for the user.
func (s *Service) mintPair(userID uint64, role string) (TokenPair, error) {
	now := time.Now().UTC()
	accessExp := now.Add(s.AccessTTL)
	refreshExp := now.Add(s.RefreshTTL)

	access, err := s.sign(jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"iat":  now.Unix(),
		"exp":  accessExp.Unix(),
	})
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(jwt.MapClaims{
		"sub": userID,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": refreshExp.Unix(),
	})
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		Access:     access,
		Refresh:    refresh,
		AccessExp:  accessExp,
		RefreshExp: refreshExp,
	}, nil
}

func (s *Service) sign(claims jwt.MapClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
}

// parse verifies the signature and registered claims of a token and
// returns its claim map. The signing method is pinned to HMAC so a token
// crafted with alg=none or an asymmetric scheme is rejected.
func (s *Service) parse(raw string) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.Secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// parseRefresh extracts the subject, jti and expiry from a refresh token.
func (s *Service) parseRefresh(raw string) (userID uint64, jti string, exp time.Time, err error) {
	claims, err := s.parse(raw)
	if err != nil {
		return 0, "", time.Time{}, err
	}
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return 0, "", time.Time{}, ErrInvalidToken
	}
	jti, ok = claims["jti"].(string)
	if !ok || jti == "" {
		return 0, "", time.Time{}, ErrInvalidToken
	}
	expF, ok := claims["exp"].(float64)
	if !ok {
		return 0, "", time.Time{}, ErrInvalidToken
	}
	return uint64(sub), jti, time.Unix(int64(expF), 0).UTC(), nil
}
