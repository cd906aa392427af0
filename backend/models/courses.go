package models

import "gorm.io/gorm"

// Course is the ownership anchor for a test. Lessons, enrollments and
// the rest of course management live outside the assessment engine.
type Course struct {
	gorm.Model
	Title       string `gorm:"not null"`
	Description string
	AuthorID    uint `gorm:"index;not null"`
	Test        *Test
}
