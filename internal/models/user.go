package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Username     string     `gorm:"uniqueIndex"`
	LastImportAt *time.Time `json:"last_import_at"`
	IsAdmin      bool
	IsModerator  bool
}

// CanModerate reports whether the user may edit taxonomy and grade ladders.
func (u User) CanModerate() bool {
	return u.IsAdmin || u.IsModerator
}
