package service

import (
	"time"

	"passport/internal/domain/entity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Token validation errors. Callers branch on these rather than on the
// jwt library's error values. The specific rejection reasons all match
// ErrTokenInvalid under errors.Is, so callers that only care about
// valid-or-not need a single check.
var (
	// ErrTokenInvalid covers every structural or cryptographic rejection.
	ErrTokenInvalid = errors.New("token is invalid")
	// ErrTokenMalformed is returned when the string is not a parseable JWT.
	ErrTokenMalformed = errors.Wrap(ErrTokenInvalid, "token is malformed")
	// ErrTokenSignatureInvalid is returned when the signature does not verify.
	ErrTokenSignatureInvalid = errors.Wrap(ErrTokenInvalid, "token signature is invalid")
	// ErrTokenAlgorithmMismatch is returned when the header names any signing
	// method other than the pinned one.
	ErrTokenAlgorithmMismatch = errors.Wrap(ErrTokenInvalid, "token signing algorithm mismatch")
	// ErrTokenExpired is returned when the token's signature is good but its
	// expiry has passed.
	ErrTokenExpired = errors.New("token has expired")
)

// Claims defines the custom claims embedded in access tokens.
// Email, Name, and Age are snapshots taken at issuance; the account record
// is the source of truth.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Age   int    `json:"age"`
	jwt.RegisteredClaims
}

// ValidateOptions tunes token validation for special flows.
type ValidateOptions struct {
	// IgnoreExpiry accepts tokens past their expiry as long as the signature
	// and structure are intact. Used when a refresh request carries an
	// expired access token whose identity is still needed.
	IgnoreExpiry bool
}

// TokenService defines the interface for generating and validating JWTs and
// for minting the opaque refresh token values that accompany them.
type TokenService interface {
	// IssueAccessToken creates a signed access token carrying the account's
	// identity claims and a unique token ID.
	IssueAccessToken(account *entity.Account) (string, error)

	// ValidateToken checks a token string and returns its claims.
	// Returns ErrTokenExpired for structurally valid but expired tokens and
	// ErrTokenInvalid for everything else that fails.
	ValidateToken(tokenString string, opts ValidateOptions) (*Claims, error)

	// NewRefreshTokenValue returns a fresh opaque refresh token value with
	// enough entropy that collisions and guessing are not a concern.
	NewRefreshTokenValue() (string, error)

	// HashTokenValue maps a raw refresh token value to the digest stored in
	// the database. Deterministic, so lookups work without the raw value
	// ever being persisted.
	HashTokenValue(raw string) string

	// AccessTokenDuration returns the configured lifetime of access tokens.
	AccessTokenDuration() time.Duration

	// RefreshTokenDuration returns the configured lifetime of refresh tokens.
	RefreshTokenDuration() time.Duration
}
