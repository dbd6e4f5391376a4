// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"passport/internal/delivery/http/middleware"
	"passport/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler    *handler.AuthHandler
	AccountHandler *handler.AccountHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler    *handler.AuthHandler
	accountHandler *handler.AccountHandler
	authMiddleware *middleware.AuthMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:    params.AuthHandler,
		accountHandler: params.AccountHandler,
		authMiddleware: params.AuthMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Session lifecycle routes
	authGroup := e.Group("/auth")
	{
		authGroup.POST("/register", r.authHandler.Register)
		authGroup.POST("/login", r.authHandler.Login)
		authGroup.POST("/refresh", r.authHandler.Refresh)
		authGroup.POST("/logout", r.authHandler.Logout)
		authGroup.POST("/logout-all", r.authHandler.LogoutAll, r.authMiddleware.Authenticate)
		authGroup.GET("/me", r.authHandler.CurrentUser, r.authMiddleware.Authenticate)
	}

	// External identity provider routes
	oauthGroup := e.Group("/oauth")
	{
		oauthGroup.GET("/providers", r.authHandler.OAuthProviders)
		oauthGroup.POST("/:provider/callback", r.authHandler.OAuthCallback)
	}

	// Account management routes; all require authentication
	accountGroup := e.Group("/accounts")
	accountGroup.Use(r.authMiddleware.Authenticate)
	{
		accountGroup.GET("", r.accountHandler.List)
		accountGroup.GET("/:id", r.accountHandler.Get)
		accountGroup.PATCH("/:id", r.accountHandler.Update)
		accountGroup.DELETE("/:id", r.accountHandler.Deactivate)
		accountGroup.GET("/:id/sessions", r.accountHandler.Sessions)
	}

	// Maintenance routes
	maintenanceGroup := e.Group("/maintenance")
	maintenanceGroup.Use(r.authMiddleware.Authenticate)
	{
		maintenanceGroup.POST("/tokens/cleanup", r.accountHandler.CleanupTokens)
	}
}
