package model

import "time"

// Roles stored in users.role. Registration defaults to participant when the
// client sends an empty role.
const (
	RoleParticipant = "participant"
	RoleOrganiser   = "organiser"
	RoleAdmin       = "admin"
)

// ValidRole reports whether s is one of the known role names.
func ValidRole(s string) bool {
	return s == RoleParticipant || s == RoleOrganiser || s == RoleAdmin
}

// User mirrors the `users` table. Accounts are never deleted; is_active
// exists so an account can be disabled without losing audit continuity.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username (unique, lower-cased)
	Email        string    // users.email
	PasswordHash string    // users.password_hash (bcrypt)
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// BlacklistEntry mirrors the `token_blacklist` table. A row records one
// consumed or revoked refresh-token id (jti). Rows are never updated; an
// expiry-based sweep removes rows whose token could no longer validate
// anyway.
type BlacklistEntry struct {
	ID        uint64    // token_blacklist.id
	JTI       string    // token_blacklist.jti (unique)
	ExpiresAt time.Time // token_blacklist.expires_at
	CreatedAt time.Time // token_blacklist.created_at
}
