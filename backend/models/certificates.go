package models

import (
	"time"

	"gorm.io/gorm"
)

// Certificate is issued at most once per (user, course). The unique
// index is what makes concurrent qualifying submissions safe; the
// application only reads back whichever row won.
type Certificate struct {
	gorm.Model
	UserID    uint   `gorm:"not null;uniqueIndex:idx_user_course_cert"`
	CourseID  uint   `gorm:"not null;uniqueIndex:idx_user_course_cert"`
	TestID    uint   `gorm:"not null"`
	AttemptID uint   `gorm:"not null"` // the qualifying passing attempt
	Code      string `gorm:"uniqueIndex;not null"`
	Score     float64
	IssuedAt  time.Time
}
