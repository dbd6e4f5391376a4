// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Account is the identity record at the center of the system.
// The credential hash never leaves the domain layer; projections strip it.
type Account struct {
	ID             uuid.UUID // Global unique identifier for the account.
	Email          string    // Login identifier; unique among active accounts, case-insensitive.
	Name           string    // Display name.
	Age            int       // Self-reported age; registration requires >= 18.
	CredentialHash string    // bcrypt hash of the password, or a hash of a random value for OAuth-provisioned accounts.
	Active         bool      // Soft-delete flag; inactive accounts cannot authenticate.
	CreatedAt      time.Time // When the account was created.
	UpdatedAt      time.Time // Last modification to the account record.
}

// Projection returns the caller-facing view of the account.
// The credential hash is deliberately absent.
func (a *Account) Projection() *AccountProjection {
	return &AccountProjection{
		ID:        a.ID,
		Email:     a.Email,
		Name:      a.Name,
		Age:       a.Age,
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
	}
}

// AccountProjection is what session operations return to callers.
type AccountProjection struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Age       int       `json:"age"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// OAuthIdentity is a provider-verified external identity. It is consumed once
// by reconciliation and never persisted by the core.
type OAuthIdentity struct {
	Provider string // e.g. "google"
	Email    string // Provider-asserted email.
	Name     string // Provider-asserted display name; may be empty.
}
