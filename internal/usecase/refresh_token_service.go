package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IssuedRefreshToken is the result of minting or rotating a refresh token.
// Value is the raw opaque token; it is never stored and never reappears.
type IssuedRefreshToken struct {
	ID        uuid.UUID
	Value     string
	ExpiresAt time.Time
}

// RefreshTokenService owns the refresh token lifecycle: minting, single-use
// rotation, revocation, and reuse detection. The orchestrator composes it
// with JWT issuance; nothing else touches refresh token persistence.
type RefreshTokenService interface {
	// Issue mints a new refresh token for an account and persists its hash.
	Issue(ctx context.Context, accountID uuid.UUID) (*IssuedRefreshToken, error)

	// Rotate atomically exchanges a live refresh token for its successor.
	// The presented token must be unrevoked, unexpired, and belong to the
	// given account. Presenting an already-rotated token is treated as theft:
	// depending on configuration the whole chain is revoked, and the call
	// fails with ErrRefreshTokenInvalid either way. Concurrent rotations of
	// the same value let exactly one caller through.
	Rotate(ctx context.Context, rawValue string, accountID uuid.UUID) (*IssuedRefreshToken, error)

	// IsValid reports whether a raw token value is known, unrevoked, and
	// unexpired. Unknown values are simply invalid, not errors.
	IsValid(ctx context.Context, rawValue string) (bool, error)

	// Revoke marks the presented token revoked. Unknown or already revoked
	// tokens are ignored so logout is idempotent.
	Revoke(ctx context.Context, rawValue string) error

	// RevokeAll revokes every live token of an account.
	RevokeAll(ctx context.Context, accountID uuid.UUID) error

	// ActiveSessionCount reports how many live tokens an account holds.
	ActiveSessionCount(ctx context.Context, accountID uuid.UUID) (int, error)

	// CleanupExpired deletes token records past their expiry.
	CleanupExpired(ctx context.Context) (int64, error)
}
