package middleware

import (
	"strings"

	"passport/internal/delivery/http/response"
	"passport/internal/domain/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Context keys set by Authenticate for downstream handlers.
const (
	ContextKeyAccountID   = "accountID"
	ContextKeyClaims      = "claims"
	ContextKeyAccessToken = "accessToken"
)

// AuthMiddleware provides middleware for JWT authentication.
type AuthMiddleware struct {
	tokenSvc service.TokenService
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(tokenSvc service.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc}
}

// Authenticate validates the bearer access token and stashes the account
// identity on the echo context.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return response.Unauthorized(c, "UNAUTHORIZED", "Authorization header is missing")
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return response.Unauthorized(c, "UNAUTHORIZED", "Invalid token format, must be Bearer token")
		}

		claims, err := m.tokenSvc.ValidateToken(tokenString, service.ValidateOptions{})
		if err != nil {
			return response.Unauthorized(c, "ACCESS_TOKEN_INVALID", "Invalid or expired token")
		}

		accountID, err := uuid.Parse(claims.Subject)
		if err != nil {
			return response.Unauthorized(c, "ACCESS_TOKEN_INVALID", "Token carries no account identity")
		}

		c.Set(ContextKeyAccountID, accountID)
		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyAccessToken, tokenString)

		return next(c)
	}
}

// AccountID extracts the authenticated account ID set by Authenticate.
func AccountID(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(ContextKeyAccountID).(uuid.UUID)

	return id, ok
}

// AccessToken extracts the raw bearer token set by Authenticate.
func AccessToken(c echo.Context) (string, bool) {
	token, ok := c.Get(ContextKeyAccessToken).(string)

	return token, ok
}
