package entity

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken represents a long-lived, single-use session credential.
// Only a SHA-256 hash of the opaque value is stored; the raw value exists
// solely in the response that issued it.
//
// A token is valid iff !Revoked && now < ExpiresAt. Rotation revokes the old
// record and links it to its successor through ReplacedBy; records are never
// deleted on revocation so that replayed values remain detectable.
type RefreshToken struct {
	ID         uuid.UUID  // Unique ID for this token record.
	AccountID  uuid.UUID  // The account this session belongs to.
	TokenHash  string     // SHA-256 hash of the raw token value; globally unique.
	ExpiresAt  time.Time  // When this token stops being exchangeable.
	Revoked    bool       // Set by rotation, explicit revocation, or cascade.
	ReplacedBy *uuid.UUID // ID of the successor token when rotated, nil otherwise.
	CreatedAt  time.Time  // When this session segment was created.
}

// ValidAt reports whether the token can still be exchanged at the given instant.
func (t *RefreshToken) ValidAt(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
