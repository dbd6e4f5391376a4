// Package google implements ID-token based sign-in against Google.
// The client completes the provider flow in the browser or app and sends us
// the resulting ID token; this package checks its claims and extracts the
// asserted identity.
package google

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"passport/config"
	"passport/internal/domain/entity"
	"passport/internal/domain/service"

	"github.com/pkg/errors"
)

// ProviderName identifies this verifier in callback routing and audit logs.
const ProviderName = "google"

// idTokenClaims represents the claims in a Google ID token.
type idTokenClaims struct {
	Iss           string `json:"iss"`            // Issuer
	Sub           string `json:"sub"`            // Subject (user ID)
	Aud           string `json:"aud"`            // Audience (client ID)
	Exp           int64  `json:"exp"`            // Expiration time
	Iat           int64  `json:"iat"`            // Issued at
	Email         string `json:"email"`          // User's email
	EmailVerified bool   `json:"email_verified"` // Email verification status
	Name          string `json:"name"`           // User's full name
	GivenName     string `json:"given_name"`     // First name
	FamilyName    string `json:"family_name"`    // Last name
}

// authService implements service.OAuthAuthService for Google ID tokens.
type authService struct {
	clientID string
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthService creates the Google ID-token verifier.
func NewAuthService(cfg *config.Config, logger *slog.Logger) (service.OAuthAuthService, error) {
	if cfg.OAuth == nil || cfg.OAuth.Google == nil || cfg.OAuth.Google.ClientID == "" {
		return nil, errors.New("google oauth client id must be provided")
	}

	return &authService{
		clientID: cfg.OAuth.Google.ClientID,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// VerifyIDToken checks a Google ID token's claims and returns the asserted identity.
func (s *authService) VerifyIDToken(ctx context.Context, idToken string) (*entity.OAuthIdentity, error) {
	claims, err := parseIDToken(idToken)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to parse google id token", slog.Any("error", err))

		return nil, errors.Wrap(err, "invalid ID token")
	}

	if err := s.verifyClaims(claims); err != nil {
		s.logger.WarnContext(ctx, "google id token rejected", slog.Any("error", err))

		return nil, errors.Wrap(err, "token verification failed")
	}

	s.logger.InfoContext(ctx, "google id token verified",
		slog.String("subject", claims.Sub))

	name := claims.Name
	if name == "" {
		name = strings.TrimSpace(claims.GivenName + " " + claims.FamilyName)
	}

	return &entity.OAuthIdentity{
		Provider: ProviderName,
		Email:    claims.Email,
		Name:     name,
	}, nil
}

// Provider returns the provider name this verifier handles.
func (s *authService) Provider() string {
	return ProviderName
}

func (s *authService) verifyClaims(claims *idTokenClaims) error {
	if claims.Iss != "https://accounts.google.com" && claims.Iss != "accounts.google.com" {
		return errors.Errorf("invalid issuer: %s", claims.Iss)
	}

	if claims.Aud != s.clientID {
		return errors.New("invalid audience")
	}

	if claims.Exp <= s.now().Unix() {
		return errors.New("token expired")
	}

	if !claims.EmailVerified {
		return errors.New("email not verified")
	}

	if claims.Email == "" {
		return errors.New("token carries no email")
	}

	return nil
}

// parseIDToken extracts the claims from the token's payload segment.
func parseIDToken(token string) (*idTokenClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, errors.New("invalid JWT format")
	}

	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode token payload")
	}

	var claims idTokenClaims
	if err := json.Unmarshal(decoded, &claims); err != nil {
		return nil, errors.Wrap(err, "failed to parse token claims")
	}

	return &claims, nil
}
