package services

import (
	"errors"

	"edutest/backend/models"

	"gorm.io/gorm"
)

// Validator holds the structural checks a test must pass before it can
// be published: at least one question, and every question with exactly
// four options of which exactly one is correct. The same checks run at
// option-write time so an invalid question set is never persisted.
type Validator struct {
	DB *gorm.DB
}

func NewValidator(db *gorm.DB) *Validator {
	return &Validator{DB: db}
}

// OptionSetValid reports whether an in-memory option set satisfies the
// per-question invariant.
func OptionSetValid(options []models.AnswerOption) bool {
	if len(options) != models.OptionsPerQuestion {
		return false
	}
	correct := 0
	for _, o := range options {
		if o.Correct {
			correct++
		}
	}
	return correct == 1
}

// ValidateQuestionOptions checks the stored option set of one question.
func (v *Validator) ValidateQuestionOptions(questionID uint) (bool, error) {
	var question models.Question
	if err := v.DB.First(&question, questionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fail(ErrNotFound, "question %d", questionID)
		}
		return false, err
	}

	var options []models.AnswerOption
	if err := v.DB.Where("question_id = ?", questionID).Find(&options).Error; err != nil {
		return false, err
	}
	return OptionSetValid(options), nil
}

// ValidateTestForPublish checks the whole test: non-empty question set
// and every question passing the option invariant. Read-only.
func (v *Validator) ValidateTestForPublish(testID uint) (bool, error) {
	var questions []models.Question
	if err := v.DB.Preload("Options").Where("test_id = ?", testID).Find(&questions).Error; err != nil {
		return false, err
	}
	if len(questions) == 0 {
		return false, nil
	}
	for _, q := range questions {
		if !OptionSetValid(q.Options) {
			return false, nil
		}
	}
	return true, nil
}
