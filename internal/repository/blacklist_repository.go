package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrTokenConsumed is returned by Claim when the jti is already present in
// the blacklist, i.e. the refresh token was redeemed or revoked before.
var ErrTokenConsumed = errors.New("refresh token already consumed")

// BlacklistRepo persists consumed refresh-token ids. Rows are insert-only;
// the unique key on jti provides the check-and-insert atomicity that
// refresh rotation depends on. The store is shared across instances, so
// revocation must never live in process memory.
type BlacklistRepo struct{ DB *sql.DB }

func NewBlacklistRepo(db *sql.DB) *BlacklistRepo { return &BlacklistRepo{DB: db} }

// Claim atomically inserts the jti into the blacklist. INSERT IGNORE with
// the unique key means two concurrent redemptions of the same token race on
// one row: exactly one insert reports an affected row, the other sees zero
// and gets ErrTokenConsumed. No read-then-write window exists.
func (r *BlacklistRepo) Claim(ctx context.Context, jti string, expiresAt time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO token_blacklist (jti, expires_at) VALUES (?,?)",
		jti, expiresAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTokenConsumed
	}
	return nil
}

// Contains reports whether the jti has been blacklisted.
func (r *BlacklistRepo) Contains(ctx context.Context, jti string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM token_blacklist WHERE jti=? LIMIT 1", jti).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PruneExpired deletes entries whose token could no longer validate anyway.
// Safe to run from any instance at any time.
func (r *BlacklistRepo) PruneExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM token_blacklist WHERE expires_at <= UTC_TIMESTAMP()")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
