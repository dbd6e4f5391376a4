package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"passport/config"
	"passport/internal/domain/entity"
	"passport/internal/domain/service"
	"passport/internal/errors"
)

// refreshTokenBytes is the entropy of an opaque refresh token value before encoding.
const refreshTokenBytes = 64

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
type jwtService struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewJWTService is the constructor for jwtService.
// It takes configuration values to create a new token service instance.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	if cfg.JWT.Secret == "" {
		return nil, errors.New("jwt secret must be provided")
	}

	return &jwtService{
		secret:     []byte(cfg.JWT.Secret),
		issuer:     cfg.JWT.Issuer,
		audience:   cfg.JWT.Audience,
		accessTTL:  cfg.JWT.AccessTTL,
		refreshTTL: cfg.JWT.RefreshTTL,
		now:        time.Now,
	}, nil
}

// IssueAccessToken creates a signed access token carrying the account's identity claims.
func (s *jwtService) IssueAccessToken(account *entity.Account) (string, error) {
	now := s.now()
	claims := &service.Claims{
		Email: account.Email,
		Name:  account.Name,
		Age:   account.Age,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID.String(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign access token")
	}

	return signed, nil
}

// ValidateToken checks a token string and returns its claims.
//
// Expiry is checked here rather than left to the jwt library so that the
// boundary is exact (a token is expired the instant now >= exp) and so that
// refresh flows can opt out of the check while still verifying the signature.
func (s *jwtService) ValidateToken(tokenString string, opts service.ValidateOptions) (*service.Claims, error) {
	claims := &service.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		// Pin the exact algorithm. Accepting the whole HMAC family, or worse
		// whatever the header names, enables algorithm-confusion attacks.
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errUnexpectedSigningMethod
		}

		return s.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil || !token.Valid {
		return nil, errors.Wrap(classifyParseError(err), "parse token")
	}
	if claims.Issuer != s.issuer {
		return nil, errors.Wrap(service.ErrTokenInvalid, "issuer mismatch")
	}
	if !audienceContains(claims.Audience, s.audience) {
		return nil, errors.Wrap(service.ErrTokenInvalid, "audience mismatch")
	}
	if claims.ExpiresAt == nil {
		return nil, errors.Wrap(service.ErrTokenInvalid, "missing expiry")
	}

	if !opts.IgnoreExpiry && !s.now().Before(claims.ExpiresAt.Time) {
		return nil, service.ErrTokenExpired
	}

	return claims, nil
}

// NewRefreshTokenValue returns a fresh opaque refresh token value.
func (s *jwtService) NewRefreshTokenValue() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "read random bytes")
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashTokenValue maps a raw refresh token value to its stored digest.
func (s *jwtService) HashTokenValue(raw string) string {
	sum := sha256.Sum256([]byte(raw))

	return hex.EncodeToString(sum[:])
}

// AccessTokenDuration returns the configured lifetime of access tokens.
func (s *jwtService) AccessTokenDuration() time.Duration {
	return s.accessTTL
}

// RefreshTokenDuration returns the configured lifetime of refresh tokens.
func (s *jwtService) RefreshTokenDuration() time.Duration {
	return s.refreshTTL
}

var errUnexpectedSigningMethod = errors.New("unexpected signing method")

// classifyParseError maps jwt library failures onto the service taxonomy.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, errUnexpectedSigningMethod):
		return service.ErrTokenAlgorithmMismatch
	case errors.Is(err, jwt.ErrTokenMalformed):
		return service.ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return service.ErrTokenSignatureInvalid
	default:
		return service.ErrTokenInvalid
	}
}

func audienceContains(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}

	return false
}
