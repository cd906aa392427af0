package models

import (
	"time"

	"gorm.io/gorm"
)

// Attempt statuses. COMPLETED and ABANDONED are terminal.
const (
	AttemptInProgress = "IN_PROGRESS"
	AttemptCompleted  = "COMPLETED"
	AttemptAbandoned  = "ABANDONED"
)

// TestAttempt is one user's run through a test. TotalQuestions and
// TotalPoints are frozen at start time; later edits to the test never
// change an attempt already underway.
type TestAttempt struct {
	gorm.Model
	TestID           uint `gorm:"not null;uniqueIndex:idx_test_user_number"`
	UserID           uint `gorm:"not null;uniqueIndex:idx_test_user_number"`
	AttemptNumber    int  `gorm:"not null;uniqueIndex:idx_test_user_number"`
	CourseID         uint `gorm:"index"`
	TotalQuestions   int
	TotalPoints      float64
	EarnedPoints     float64
	ScorePercentage  float64
	Status           string `gorm:"default:'IN_PROGRESS'"`
	Passed           bool
	StartedAt        time.Time
	CompletedAt      *time.Time
	TimeSpentSeconds int
	Answers          []AttemptAnswer `gorm:"foreignKey:AttemptID"`
}

// AttemptAnswer records the latest selection for one question of one
// attempt. The (attempt, question) pair is unique; re-answering before
// submission replaces the row. Correct and PointsEarned are filled in
// when the attempt is scored.
type AttemptAnswer struct {
	gorm.Model
	AttemptID        uint `gorm:"not null;uniqueIndex:idx_attempt_question"`
	QuestionID       uint `gorm:"not null;uniqueIndex:idx_attempt_question"`
	SelectedOptionID uint `gorm:"not null"`
	Correct          bool
	PointsEarned     float64
	AnsweredAt       time.Time
}
