package service

import (
	"context"

	"passport/internal/domain/entity"
)

// OAuthAuthService defines the interface for OAuth authentication operations.
// This is specifically for ID token verification (like Google ID tokens):
// the client completes the provider flow and hands us the resulting token.
type OAuthAuthService interface {
	// VerifyIDToken verifies an OAuth ID token and returns the asserted identity.
	VerifyIDToken(ctx context.Context, idToken string) (*entity.OAuthIdentity, error)

	// Provider returns the provider name this verifier handles, e.g. "google".
	Provider() string
}
