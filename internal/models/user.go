package models

import (
	"gorm.io/gorm"
)

// User is a Discord account that signed in to the admin area.
type User struct {
	gorm.Model
	DiscordID string `gorm:"uniqueIndex"`
	Username  string
	Email     string
	Avatar    string
	Admin     bool
}
