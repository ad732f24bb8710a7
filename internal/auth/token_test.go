package auth

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"

	"github.com/unifyevents/backend/internal/repository"
	"github.com/unifyevents/backend/internal/utils"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	svc := NewService("test-secret", 10, 1, false,
		repository.NewUserRepo(db), repository.NewBlacklistRepo(db))
	return svc, mock, func() { db.Close() }
}

func userRows(t *testing.T, id uint64, username, password, role string) *sqlmock.Rows {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "role", "is_active", "created_at", "updated_at"}).
		AddRow(id, username, username+"@example.com", hash, role, true, now, now)
}

func TestIssueAndValidateRoundtrip(t *testing.T) {
	svc, mock, done := newTestService(t)
	defer done()

	mock.ExpectQuery("SELECT .* FROM users WHERE username").
		WithArgs("alice").
		WillReturnRows(userRows(t, 42, "alice", "secret", "participant"))

	u, pair, err := svc.Issue(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if u.ID != 42 || u.Username != "alice" {
		t.Fatalf("unexpected user: %+v", u)
	}

	sub, err := svc.Validate(pair.Access)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if sub.UserID != 42 {
		t.Fatalf("subject id = %d, want 42", sub.UserID)
	}
	if sub.Role != "participant" {
		t.Fatalf("subject role = %q, want participant", sub.Role)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIssueWrongPassword(t *testing.T) {
	svc, mock, done := newTestService(t)
	defer done()

	mock.ExpectQuery("SELECT .* FROM users WHERE username").
		WithArgs("alice").
		WillReturnRows(userRows(t, 42, "alice", "secret", "participant"))

	if _, _, err := svc.Issue(context.Background(), "alice", "wrong"); err != ErrInvalidCredentials {
		t.Fatalf("Issue = %v, want ErrInvalidCredentials", err)
	}
}

func TestIssueUnknownUser(t *testing.T) {
	svc, mock, done := newTestService(t)
	defer done()

	mock.ExpectQuery("SELECT .* FROM users WHERE username").
		WithArgs("nobody").
		WillReturnError(sql.ErrNoRows)

	if _, _, err := svc.Issue(context.Background(), "nobody", "whatever"); err != ErrInvalidCredentials {
		t.Fatalf("Issue = %v, want ErrInvalidCredentials", err)
	}
}

func TestRefreshIsSingleUse(t *testing.T) {
	svc, mock, done := newTestService(t)
	defer done()

	pair, err := svc.mintPair(42, "participant")
	if err != nil {
		t.Fatalf("mintPair: %v", err)
	}

	// First redemption claims the jti and mints a new pair.
	mock.ExpectExec("INSERT IGNORE INTO token_blacklist").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT .* FROM users WHERE id").
		WithArgs(uint64(42)).
		WillReturnRows(userRows(t, 42, "alice", "secret", "participant"))

	next, err := svc.Refresh(context.Background(), pair.Refresh)
	if err != nil {
		t.Fatalf("first Refresh: %v", err)
	}
	if next.Refresh == pair.Refresh {
		t.Fatal("rotation returned the same refresh token")
	}

	// Replay: the unique key rejects the second claim.
	mock.ExpectExec("INSERT IGNORE INTO token_blacklist").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if _, err := svc.Refresh(context.Background(), pair.Refresh); err != ErrInvalidToken {
		t.Fatalf("second Refresh = %v, want ErrInvalidToken", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRefreshConcurrentDoubleRedemption(t *testing.T) {
	svc, mock, done := newTestService(t)
	defer done()
	mock.MatchExpectationsInOrder(false)

	pair, err := svc.mintPair(42, "participant")
	if err != nil {
		t.Fatalf("mintPair: %v", err)
	}

	// Two redemptions race on the blacklist insert: the unique key lets
	// exactly one report an affected row, whichever arrives first.
	mock.ExpectExec("INSERT IGNORE INTO token_blacklist").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT IGNORE INTO token_blacklist").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT .* FROM users WHERE id").
		WillReturnRows(userRows(t, 42, "alice", "secret", "participant"))

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := svc.Refresh(context.Background(), pair.Refresh)
			errs <- err
		}()
	}

	var rotated, rejected int
	for i := 0; i < 2; i++ {
		switch err := <-errs; err {
		case nil:
			rotated++
		case ErrInvalidToken:
			rejected++
		default:
			t.Fatalf("Refresh returned unexpected error: %v", err)
		}
	}
	if rotated != 1 || rejected != 1 {
		t.Fatalf("rotated=%d rejected=%d, want exactly one of each", rotated, rejected)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRevokeThenRefreshFails(t *testing.T) {
	svc, mock, done := newTestService(t)
	defer done()

	pair, err := svc.mintPair(42, "participant")
	if err != nil {
		t.Fatalf("mintPair: %v", err)
	}

	mock.ExpectExec("INSERT IGNORE INTO token_blacklist").
		WillReturnResult(sqlmock.NewResult(1, 1))
	if err := svc.Revoke(context.Background(), pair.Refresh); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	mock.ExpectExec("INSERT IGNORE INTO token_blacklist").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if _, err := svc.Refresh(context.Background(), pair.Refresh); err != ErrInvalidToken {
		t.Fatalf("Refresh after Revoke = %v, want ErrInvalidToken", err)
	}
}

func TestRevokeGarbageIsReported(t *testing.T) {
	svc, _, done := newTestService(t)
	defer done()

	if err := svc.Revoke(context.Background(), "not-a-jwt"); err != ErrInvalidToken {
		t.Fatalf("Revoke = %v, want ErrInvalidToken", err)
	}
	if err := svc.Revoke(context.Background(), ""); err != ErrMissingToken {
		t.Fatalf("Revoke(empty) = %v, want ErrMissingToken", err)
	}
}

func TestValidateExpiredAccess(t *testing.T) {
	svc, _, done := newTestService(t)
	defer done()
	svc.AccessTTL = -time.Minute // already expired at mint time

	pair, err := svc.mintPair(42, "participant")
	if err != nil {
		t.Fatalf("mintPair: %v", err)
	}
	if _, err := svc.Validate(pair.Access); err != ErrInvalidToken {
		t.Fatalf("Validate = %v, want ErrInvalidToken", err)
	}
}

func TestValidateRejectsForeignSignature(t *testing.T) {
	svc, _, done := newTestService(t)
	defer done()

	other := NewService("other-secret", 10, 1, false, nil, nil)
	pair, err := other.mintPair(42, "participant")
	if err != nil {
		t.Fatalf("mintPair: %v", err)
	}
	if _, err := svc.Validate(pair.Access); err != ErrInvalidToken {
		t.Fatalf("Validate = %v, want ErrInvalidToken", err)
	}
}

func TestValidateMissing(t *testing.T) {
	svc, _, done := newTestService(t)
	defer done()

	if _, err := svc.Validate(""); err != ErrMissingToken {
		t.Fatalf("Validate(empty) = %v, want ErrMissingToken", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _, done := newTestService(t)
	defer done()

	pair, err := svc.mintPair(42, "participant")
	if err != nil {
		t.Fatalf("mintPair: %v", err)
	}
	// Access tokens carry no jti, so they cannot be redeemed.
	if _, err := svc.Refresh(context.Background(), pair.Access); err != ErrInvalidToken {
		t.Fatalf("Refresh(access) = %v, want ErrInvalidToken", err)
	}
}
