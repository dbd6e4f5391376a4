package handler

import (
	"net/http"
	"strconv"

	"passport/internal/delivery/http/middleware"
	"passport/internal/delivery/http/response"
	"passport/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// AccountHandler holds dependencies for account management handlers.
type AccountHandler struct {
	uc usecase.AccountUsecase
}

// NewAccountHandler is the constructor for AccountHandler, injected by Fx.
func NewAccountHandler(uc usecase.AccountUsecase) *AccountHandler {
	return &AccountHandler{uc: uc}
}

type updateAccountRequest struct {
	Name *string `json:"name" validate:"omitempty,max=100"`
	Age  *int    `json:"age"`
}

// Get returns an account by ID.
func (h *AccountHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid account ID")
	}

	projection, err := h.uc.GetAccount(c.Request().Context(), id)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, projection, "")
}

// Update applies changes to the authenticated account.
// Callers may only modify themselves.
func (h *AccountHandler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid account ID")
	}
	if callerID, ok := middleware.AccountID(c); !ok || callerID != id {
		return response.Error(c, http.StatusForbidden, "FORBIDDEN", "Cannot modify another account", "")
	}

	var req updateAccountRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid account input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	projection, err := h.uc.UpdateAccount(c.Request().Context(), id, &usecase.UpdateAccountInput{
		Name: req.Name,
		Age:  req.Age,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, projection, "Account updated")
}

// Deactivate soft-deletes the authenticated account and ends its sessions.
func (h *AccountHandler) Deactivate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid account ID")
	}
	if callerID, ok := middleware.AccountID(c); !ok || callerID != id {
		return response.Error(c, http.StatusForbidden, "FORBIDDEN", "Cannot deactivate another account", "")
	}

	if err := h.uc.DeactivateAccount(c.Request().Context(), id); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Account deactivated")
}

// List returns a page of accounts.
func (h *AccountHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	projections, err := h.uc.ListAccounts(c.Request().Context(), limit, offset)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, projections, "")
}

// Sessions reports the number of live sessions of an account.
func (h *AccountHandler) Sessions(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid account ID")
	}

	count, err := h.uc.ActiveSessionCount(c.Request().Context(), id)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]int{"activeSessions": count}, "")
}

// CleanupTokens removes expired refresh token records.
func (h *AccountHandler) CleanupTokens(c echo.Context) error {
	removed, err := h.uc.CleanupExpiredTokens(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]int64{"removed": removed}, "")
}
