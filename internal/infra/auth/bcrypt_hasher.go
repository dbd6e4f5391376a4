// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"passport/config"
	"passport/internal/domain/service"
	"passport/internal/errors"
)

const randomCredentialBytes = 32

// bcryptHasher is a concrete implementation of the PasswordHasher interface using bcrypt.
type bcryptHasher struct {
	cost   int
	policy config.PasswordStrengthConfig
}

// NewBcryptHasher is the constructor for bcryptHasher.
// It returns the implementation as a service.PasswordHasher interface.
func NewBcryptHasher(cfg *config.Config) service.PasswordHasher {
	cost := bcrypt.DefaultCost
	if cfg.Auth != nil && cfg.Auth.BcryptCost >= bcrypt.MinCost && cfg.Auth.BcryptCost <= bcrypt.MaxCost {
		cost = cfg.Auth.BcryptCost
	}

	policy := config.PasswordStrengthConfig{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumbers:   true,
		RequireSpecial:   true,
	}
	if cfg.PasswordStrength != nil {
		policy = *cfg.PasswordStrength
	}

	return &bcryptHasher{cost: cost, policy: policy}
}

// Hash generates a salted hash from a plaintext password using bcrypt.
// bcrypt automatically handles salt generation.
func (h *bcryptHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", errors.Wrap(err, "bcrypt hash failed")
	}

	return string(bytes), nil
}

// Check compares a plaintext password with a bcrypt hash.
// bcrypt's comparison is constant-time over the password bytes.
func (h *bcryptHasher) Check(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	// err is nil if the password and hash match.
	return err == nil
}

// ValidateStrength checks a candidate password against the configured policy.
func (h *bcryptHasher) ValidateStrength(password string) error {
	if len(password) < h.policy.MinLength {
		return errors.Errorf("password must be at least %d characters long", h.policy.MinLength)
	}
	if h.policy.MaxLength > 0 && len(password) > h.policy.MaxLength {
		return errors.Errorf("password must be at most %d characters long", h.policy.MaxLength)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	switch {
	case h.policy.RequireUppercase && !hasUpper:
		return errors.New("password must contain an uppercase letter")
	case h.policy.RequireLowercase && !hasLower:
		return errors.New("password must contain a lowercase letter")
	case h.policy.RequireNumbers && !hasDigit:
		return errors.New("password must contain a digit")
	case h.policy.RequireSpecial && !hasSpecial:
		return errors.New("password must contain a special character")
	}

	return nil
}

// RandomCredential returns a high-entropy throwaway password for accounts
// provisioned without one. The value is never shown to anyone; it only
// exists so the account has an unguessable credential on record.
func (h *bcryptHasher) RandomCredential() (string, error) {
	buf := make([]byte, randomCredentialBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "read random bytes")
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
