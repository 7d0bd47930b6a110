package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// AdminStore authenticates the operator account used for the admin
// API. Credentials come from configuration; the password is stored as
// a bcrypt hash only.
type AdminStore struct {
	email        string
	passwordHash string
}

// NewAdminStore creates an admin credential store
func NewAdminStore(email, passwordHash string) *AdminStore {
	return &AdminStore{email: email, passwordHash: passwordHash}
}

// Authenticate checks the given credentials against the configured
// admin account
func (s *AdminStore) Authenticate(email, password string) error {
	if s.passwordHash == "" {
		return fmt.Errorf("admin login disabled: no password hash configured")
	}
	if email != s.email {
		return fmt.Errorf("unknown account")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		return fmt.Errorf("invalid credentials")
	}
	return nil
}

// HashPassword produces a bcrypt hash suitable for the
// ADMIN_PASSWORD_HASH setting
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
