package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken holds the single active session token per user. A new login
// overwrites the row, invalidating the previous session.
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	TokenHash string    `gorm:"not null;size:64" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
}
