package usecase

import (
	"context"

	"passport/internal/domain/entity"

	"github.com/google/uuid"
)

// UpdateAccountInput carries the mutable account fields. Nil pointers mean
// "leave unchanged".
type UpdateAccountInput struct {
	Name *string
	Age  *int
}

// AccountUsecase defines the interface for account management operations.
type AccountUsecase interface {
	// GetAccount returns the projection of an account by ID.
	GetAccount(ctx context.Context, id uuid.UUID) (*entity.AccountProjection, error)

	// UpdateAccount applies the given changes to an account.
	UpdateAccount(ctx context.Context, id uuid.UUID, input *UpdateAccountInput) (*entity.AccountProjection, error)

	// DeactivateAccount soft-deletes an account and revokes all of its sessions.
	DeactivateAccount(ctx context.Context, id uuid.UUID) error

	// ListAccounts returns a page of account projections.
	ListAccounts(ctx context.Context, limit, offset int) ([]*entity.AccountProjection, error)

	// ActiveSessionCount reports how many live sessions an account holds.
	ActiveSessionCount(ctx context.Context, id uuid.UUID) (int, error)

	// CleanupExpiredTokens deletes refresh token records past their expiry and
	// returns how many were removed.
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}
