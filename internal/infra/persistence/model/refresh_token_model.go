package model

import (
	"time"

	"github.com/google/uuid"
)

// RefreshTokenModel mirrors the 'refresh_tokens' table.
// Rows are flagged revoked rather than deleted so a replayed token value can
// still be recognized; ReplacedBy links each rotated row to its successor.
type RefreshTokenModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	AccountID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	TokenHash  string     `gorm:"type:varchar(64);unique;not null"`
	ExpiresAt  time.Time  `gorm:"not null;index"`
	Revoked    bool       `gorm:"not null;default:false"`
	ReplacedBy *uuid.UUID `gorm:"type:uuid"`
	CreatedAt  time.Time
}

// TableName explicitly sets the table name for GORM.
func (RefreshTokenModel) TableName() string {
	return "refresh_tokens"
}
