package models

import (
	"time"

	"gorm.io/gorm"
)

// APIKey lets scripts (e.g. the spreadsheet export) call admin endpoints.
// Only the SHA-256 hash of the key is stored.
type APIKey struct {
	gorm.Model
	UserID     uint       `json:"user_id"`
	User       User       `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	KeyHash    string     `json:"-" gorm:"uniqueIndex"`
	Suffix     string     `json:"suffix"`
	Name       string     `json:"name"`
	ExpiresAt  *time.Time `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}
