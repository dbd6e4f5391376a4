package repository

import (
	"context"
	"time"

	"passport/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Domain-specific errors for refresh token persistence.
var (
	// ErrRefreshTokenNotFound is returned when no record matches the given hash or ID.
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	// ErrRefreshTokenRotated is returned by RevokeAndLink when the record was
	// already revoked, meaning another request won the rotation race.
	ErrRefreshTokenRotated = errors.New("refresh token already rotated")
)

// RefreshTokenRepository defines the interface for refresh token persistence.
//
// Records are never deleted on revocation; they are flagged so that a replayed
// token value can still be recognized and treated as a reuse signal. Only
// DeleteExpired physically removes rows, and only ones past their expiry.
type RefreshTokenRepository interface {
	// CreateRefreshToken persists a new refresh token, representing a session segment.
	CreateRefreshToken(ctx context.Context, token *entity.RefreshToken) error

	// FindRefreshTokenByHash retrieves a refresh token record by its stored hash,
	// regardless of its revoked state.
	FindRefreshTokenByHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error)

	// FindRefreshTokenByID retrieves a refresh token record by its unique ID.
	FindRefreshTokenByID(ctx context.Context, id uuid.UUID) (*entity.RefreshToken, error)

	// RevokeRefreshToken marks a single token revoked. Revoking an already
	// revoked token is a no-op, not an error.
	RevokeRefreshToken(ctx context.Context, id uuid.UUID) error

	// RevokeAndLink atomically revokes the token with the given hash and records
	// its successor, but only if the token is still unrevoked. Exactly one
	// concurrent caller per hash succeeds; the rest get ErrRefreshTokenRotated.
	RevokeAndLink(ctx context.Context, tokenHash string, replacedBy uuid.UUID) error

	// RevokeRefreshTokensByAccountID revokes every live token for an account.
	// Used for logout-everywhere and reuse-cascade revocation.
	RevokeRefreshTokensByAccountID(ctx context.Context, accountID uuid.UUID) error

	// FindChainByAccountID returns all token records for an account, newest first,
	// including revoked ones. Used to inspect rotation history.
	FindChainByAccountID(ctx context.Context, accountID uuid.UUID) ([]*entity.RefreshToken, error)

	// DeleteExpiredRefreshTokens removes records whose expiry is at or before
	// the given instant. Called periodically for cleanup.
	DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error)

	// CountActiveSessionsByAccountID returns the number of live (unrevoked,
	// unexpired) sessions for an account.
	CountActiveSessionsByAccountID(ctx context.Context, accountID uuid.UUID) (int, error)
}
