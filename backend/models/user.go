package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Username     string `gorm:"unique;not null"`
	Email        string `gorm:"unique;not null"`
	PasswordHash string
	// LegacyPasswordHash holds the deprecated locally-hashed password for
	// accounts created before the auth migration. Cleared on first login.
	LegacyPasswordHash string
	Role               string `gorm:"default:user"` // user, admin
}

type PasswordReset struct {
	gorm.Model
	UserID    uint   `gorm:"index"`
	Token     string `gorm:"uniqueIndex"`
	ExpiresAt time.Time
	Used      bool `gorm:"default:false"`
}
