// Package model defines the GORM data models mirroring the database schema.
package model

import (
	"time"

	"github.com/google/uuid"
)

// AccountModel mirrors the 'accounts' table. PostgreSQL generates UUIDs via uuid_generate_v7().
type AccountModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	Email          string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_accounts_active_email,where:active"`
	Name           string    `gorm:"type:varchar(100);not null"`
	Age            int       `gorm:"not null"`
	CredentialHash string    `gorm:"type:varchar(255);not null"`
	Active         bool      `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	RefreshTokens []RefreshTokenModel `gorm:"foreignKey:AccountID"`
}

// TableName explicitly sets the table name for GORM.
func (AccountModel) TableName() string {
	return "accounts"
}
