// Package service defines interfaces for core, stateless domain logic.
// These services encapsulate business rules that don't naturally fit within a single entity.
package service

// PasswordHasher defines the interface for credential hashing and verification.
// This abstracts the underlying hashing algorithm (e.g., bcrypt), keeping the domain pure.
type PasswordHasher interface {
	// Hash generates a salted hash from a plaintext password.
	Hash(password string) (string, error)

	// Check compares a plaintext password with a hash to see if they match.
	// It must run in time independent of where the inputs differ.
	Check(password, hash string) bool

	// ValidateStrength checks a candidate password against the configured
	// strength policy and returns a human-readable reason when it fails.
	ValidateStrength(password string) error

	// RandomCredential returns a high-entropy throwaway password. Accounts
	// provisioned from an OAuth identity get one so they satisfy the schema
	// without having a guessable login credential.
	RandomCredential() (string, error)
}
