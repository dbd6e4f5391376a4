package middleware

import (
	"log/slog"

	"passport/config"
	deliverycontext "passport/internal/delivery/context"

	"github.com/labstack/echo/v4"
)

// RequestContextMiddleware assigns each request an ID and a request-scoped
// logger carrying it, so every log line of a request can be correlated.
type RequestContextMiddleware struct {
	logger *slog.Logger
	debug  bool
}

// NewRequestContextMiddleware creates the request context middleware.
func NewRequestContextMiddleware(logger *slog.Logger, cfg *config.Config) *RequestContextMiddleware {
	return &RequestContextMiddleware{
		logger: logger,
		debug:  cfg.Env.Debug,
	}
}

// Handle propagates or mints the request ID and injects the scoped logger
// into the request context consumed by the use case layer.
func (m *RequestContextMiddleware) Handle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get(deliverycontext.HeaderXRequestID)
		if requestID == "" {
			requestID = deliverycontext.GetRequestID(c)
		}
		deliverycontext.SetRequestID(c, requestID)
		c.Response().Header().Set(deliverycontext.HeaderXRequestID, requestID)

		scopedLogger := m.logger.With(slog.String("requestID", requestID))

		ctx := c.Request().Context()
		ctx = deliverycontext.WithRequestID(ctx, requestID)
		ctx = deliverycontext.WithLogger(ctx, scopedLogger)
		c.SetRequest(c.Request().WithContext(ctx))

		return next(c)
	}
}
