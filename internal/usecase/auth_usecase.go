// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"passport/internal/domain/entity"
)

// --- Input DTOs ---

// RegisterInput defines the data required to register a new account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Age      int
}

// LoginInput defines the data required for a password login.
type LoginInput struct {
	Email    string
	Password string
}

// RefreshInput carries the credentials presented to the refresh flow.
// The access token may be expired; only its identity is used.
type RefreshInput struct {
	AccessToken  string
	RefreshToken string
}

// OAuthLoginInput carries a provider ID token obtained by the client.
type OAuthLoginInput struct {
	Provider string
	IDToken  string
}

// --- Output DTOs ---

// SessionOutput returns the full credential set after any successful
// authentication: register, login, refresh, or OAuth callback.
type SessionOutput struct {
	AccessToken      string
	RefreshToken     string
	ExpiresIn        int64 // Access token lifetime in seconds.
	RefreshExpiresIn int64 // Refresh token lifetime in seconds.
	Account          *entity.AccountProjection
}

// AuthUsecase defines the interface for session lifecycle operations.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
type AuthUsecase interface {
	// Register creates a new account and opens its first session.
	Register(ctx context.Context, input *RegisterInput) (*SessionOutput, error)

	// Login verifies a password credential and opens a session.
	Login(ctx context.Context, input *LoginInput) (*SessionOutput, error)

	// Refresh exchanges a live refresh token for a fresh credential pair,
	// rotating the refresh token in the process.
	Refresh(ctx context.Context, input *RefreshInput) (*SessionOutput, error)

	// Logout revokes the presented refresh token. Revoking an already dead
	// token succeeds silently.
	Logout(ctx context.Context, refreshToken string) error

	// LogoutAll revokes every live session of the account identified by the
	// access token.
	LogoutAll(ctx context.Context, accessToken string) error

	// CurrentUser resolves a live access token to the account it represents.
	CurrentUser(ctx context.Context, accessToken string) (*entity.AccountProjection, error)

	// OAuthLogin verifies a provider ID token, reconciles the external
	// identity to a local account, and opens a session.
	OAuthLogin(ctx context.Context, input *OAuthLoginInput) (*SessionOutput, error)

	// OAuthProviders lists the configured external identity providers.
	OAuthProviders() []string
}
