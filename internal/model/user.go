package model

import "time"

// User is an authenticated operator of the system. A default admin account
// is seeded once at startup if absent.
type User struct {
	ID           int64  `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;size:80;not null"`
	Email        string `gorm:"size:120;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"size:20;not null;default:user"`
	CreatedAt    time.Time
}
