// Package utils holds small helpers shared across packages. Password
// hashing lives here so the repository and token service agree on one
// bcrypt treatment of users.password_hash.
package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword returns the bcrypt digest of plain at the given cost. The
// cost comes from configuration; tests pass bcrypt.MinCost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the stored bcrypt digest.
// The comparison is constant-time within bcrypt itself.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
