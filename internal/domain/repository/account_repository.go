// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"

	"passport/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Domain-specific errors for account persistence.
var (
	// ErrAccountNotFound is returned when no matching account exists.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateEmail is returned when an insert or update collides with
	// an existing active account's email.
	ErrDuplicateEmail = errors.New("email already in use")
)

// AccountRepository defines the interface for account management operations.
// Email lookups are case-insensitive and only ever match active accounts.
type AccountRepository interface {
	// CreateAccount persists a new account.
	// Returns ErrDuplicateEmail when the email is already held by an active account.
	CreateAccount(ctx context.Context, account *entity.Account) error

	// FindAccountByID retrieves an account by its unique ID, active or not.
	FindAccountByID(ctx context.Context, id uuid.UUID) (*entity.Account, error)

	// FindActiveAccountByEmail retrieves an active account by email, case-insensitively.
	// Deactivated accounts are invisible to this lookup.
	FindActiveAccountByEmail(ctx context.Context, email string) (*entity.Account, error)

	// UpdateAccount persists changes to an existing account.
	UpdateAccount(ctx context.Context, account *entity.Account) error

	// DeactivateAccount soft-deletes an account; its sessions must be revoked
	// separately by the caller.
	DeactivateAccount(ctx context.Context, id uuid.UUID) error

	// ListAccounts returns a page of accounts ordered by creation time.
	ListAccounts(ctx context.Context, limit, offset int) ([]*entity.Account, error)
}
