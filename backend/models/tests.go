package models

import "gorm.io/gorm"

const DefaultPassingScore = 80.0

// OptionsPerQuestion is fixed: every question carries exactly four options.
const OptionsPerQuestion = 4

// OptionLetters enumerates the valid option letters in assignment order.
var OptionLetters = [OptionsPerQuestion]string{"A", "B", "C", "D"}

type Test struct {
	gorm.Model
	CourseID         uint   `gorm:"uniqueIndex;not null"` // one test per course
	Title            string `gorm:"not null"`
	Description      string
	PassingScore     float64 `gorm:"default:80"`
	TimeLimitMinutes *int    // nil = unlimited
	ShuffleQuestions bool
	ShuffleOptions   bool
	MaxAttempts      *int // nil = unlimited
	Published        bool `gorm:"default:false"`
	Questions        []Question
}

type Question struct {
	gorm.Model
	TestID        uint   `gorm:"index;not null"`
	Text          string `gorm:"type:text;not null"`
	SequenceOrder int
	Points        float64        `gorm:"default:1"`
	Options       []AnswerOption `gorm:"foreignKey:QuestionID"`
}

type AnswerOption struct {
	gorm.Model
	QuestionID uint   `gorm:"not null;uniqueIndex:idx_question_letter"`
	Text       string `gorm:"not null"`
	Letter     string `gorm:"size:1;uniqueIndex:idx_question_letter"` // A-D
	Correct    bool
}
