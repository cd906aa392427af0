package models

import "gorm.io/gorm"

type User struct {
	gorm.Model
	Username     string `gorm:"unique;not null"`
	Email        string `gorm:"unique;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"default:user"` // user, instructor, admin
}

// IsAdmin reports whether the user holds blanket authoring rights.
func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}

// IsInstructor reports whether the user may own courses and author tests.
func (u *User) IsInstructor() bool {
	return u.Role == "instructor" || u.Role == "admin"
}
