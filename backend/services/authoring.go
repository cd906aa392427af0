package services

import (
	"database/sql"
	"errors"
	"strings"

	"edutest/backend/models"

	"gorm.io/gorm"
)

// TestService covers the authoring side: tests, questions and options,
// the one-test-per-course rule, ownership checks and the publish gate.
type TestService struct {
	DB        *gorm.DB
	Validator *Validator
}

func NewTestService(db *gorm.DB) *TestService {
	return &TestService{DB: db, Validator: NewValidator(db)}
}

// TestDefinition is the configuration supplied when creating a test.
// PassingScore nil means the default of 80; an explicit 0 is a valid
// everyone-passes threshold.
type TestDefinition struct {
	Title            string
	Description      string
	PassingScore     *float64
	TimeLimitMinutes *int
	ShuffleQuestions bool
	ShuffleOptions   bool
	MaxAttempts      *int
}

// TestPatch carries optional metadata edits; nil fields are untouched.
// Metadata stays editable after publish, only questions/options lock.
type TestPatch struct {
	Title            *string
	Description      *string
	PassingScore     *float64
	TimeLimitMinutes *int
	ShuffleQuestions *bool
	ShuffleOptions   *bool
	MaxAttempts      *int
}

// OptionInput is one option in a SetOptions batch. Letters are assigned
// by position (A-D), so the input carries only text and the correct flag.
type OptionInput struct {
	Text    string
	Correct bool
}

// requireCourseOwner loads the course and verifies the caller owns it.
// Admins pass the check everywhere the course author would.
func (ts *TestService) requireCourseOwner(db *gorm.DB, courseID, userID uint) (*models.Course, error) {
	var course models.Course
	if err := db.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fail(ErrNotFound, "course %d", courseID)
		}
		return nil, err
	}
	if course.AuthorID == userID {
		return &course, nil
	}
	var user models.User
	if err := db.First(&user, userID).Error; err == nil && user.IsAdmin() {
		return &course, nil
	}
	return nil, fail(ErrPermissionDenied, "user %d does not own course %d", userID, courseID)
}

// hasOpenAttempts reports whether any attempt on the test is still
// IN_PROGRESS. Those attempts score against the stored question set at
// submit time, so destructive question edits must wait for them.
func (ts *TestService) hasOpenAttempts(testID uint) (bool, error) {
	var open int64
	err := ts.DB.Model(&models.TestAttempt{}).
		Where("test_id = ? AND status = ?", testID, models.AttemptInProgress).
		Count(&open).Error
	return open > 0, err
}

// ownedTest loads a test and checks the caller against its course.
func (ts *TestService) ownedTest(db *gorm.DB, testID, userID uint) (*models.Test, error) {
	var test models.Test
	if err := db.First(&test, testID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fail(ErrNotFound, "test %d", testID)
		}
		return nil, err
	}
	if _, err := ts.requireCourseOwner(db, test.CourseID, userID); err != nil {
		return nil, err
	}
	return &test, nil
}

func (ts *TestService) CreateTest(courseID, ownerID uint, def TestDefinition) (*models.Test, error) {
	if _, err := ts.requireCourseOwner(ts.DB, courseID, ownerID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(def.Title) == "" {
		return nil, fail(ErrValidation, "test title is required")
	}
	passingScore := models.DefaultPassingScore
	if def.PassingScore != nil {
		if *def.PassingScore < 0 || *def.PassingScore > 100 {
			return nil, fail(ErrValidation, "passing score must be between 0 and 100")
		}
		passingScore = *def.PassingScore
	}
	if def.TimeLimitMinutes != nil && *def.TimeLimitMinutes <= 0 {
		return nil, fail(ErrValidation, "time limit must be positive")
	}
	if def.MaxAttempts != nil && *def.MaxAttempts <= 0 {
		return nil, fail(ErrValidation, "max attempts must be positive")
	}

	test := models.Test{
		CourseID:         courseID,
		Title:            def.Title,
		Description:      def.Description,
		PassingScore:     passingScore,
		TimeLimitMinutes: def.TimeLimitMinutes,
		ShuffleQuestions: def.ShuffleQuestions,
		ShuffleOptions:   def.ShuffleOptions,
		MaxAttempts:      def.MaxAttempts,
	}
	if err := ts.DB.Create(&test).Error; err != nil {
		// unique index on course_id: a course has at most one test
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fail(ErrConflict, "course %d already has a test", courseID)
		}
		return nil, err
	}
	return &test, nil
}

func (ts *TestService) UpdateTest(testID, ownerID uint, patch TestPatch) (*models.Test, error) {
	test, err := ts.ownedTest(ts.DB, testID, ownerID)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, fail(ErrValidation, "test title is required")
		}
		test.Title = *patch.Title
	}
	if patch.Description != nil {
		test.Description = *patch.Description
	}
	if patch.PassingScore != nil {
		if *patch.PassingScore < 0 || *patch.PassingScore > 100 {
			return nil, fail(ErrValidation, "passing score must be between 0 and 100")
		}
		test.PassingScore = *patch.PassingScore
	}
	if patch.TimeLimitMinutes != nil {
		switch {
		case *patch.TimeLimitMinutes < 0:
			return nil, fail(ErrValidation, "time limit must be positive")
		case *patch.TimeLimitMinutes == 0:
			// zero is never a valid limit, so it means back to unlimited
			test.TimeLimitMinutes = nil
		default:
			test.TimeLimitMinutes = patch.TimeLimitMinutes
		}
	}
	if patch.ShuffleQuestions != nil {
		test.ShuffleQuestions = *patch.ShuffleQuestions
	}
	if patch.ShuffleOptions != nil {
		test.ShuffleOptions = *patch.ShuffleOptions
	}
	if patch.MaxAttempts != nil {
		switch {
		case *patch.MaxAttempts < 0:
			return nil, fail(ErrValidation, "max attempts must be positive")
		case *patch.MaxAttempts == 0:
			test.MaxAttempts = nil
		default:
			test.MaxAttempts = patch.MaxAttempts
		}
	}

	if err := ts.DB.Save(test).Error; err != nil {
		return nil, err
	}
	return test, nil
}

// AddQuestion appends a question. points nil means the default of 1;
// an explicit value must be positive.
func (ts *TestService) AddQuestion(testID, ownerID uint, text string, points *float64) (*models.Question, error) {
	test, err := ts.ownedTest(ts.DB, testID, ownerID)
	if err != nil {
		return nil, err
	}
	if test.Published {
		return nil, fail(ErrInvalidState, "test %d is published; unpublish before editing questions", testID)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fail(ErrValidation, "question text is required")
	}
	questionPoints := 1.0
	if points != nil {
		if *points <= 0 {
			return nil, fail(ErrValidation, "question points must be positive")
		}
		questionPoints = *points
	}

	// next presentation slot: max existing order + 1, 0 when empty
	var maxOrder sql.NullInt64
	if err := ts.DB.Model(&models.Question{}).Where("test_id = ?", testID).
		Select("MAX(sequence_order)").Scan(&maxOrder).Error; err != nil {
		return nil, err
	}
	order := 0
	if maxOrder.Valid {
		order = int(maxOrder.Int64) + 1
	}

	question := models.Question{
		TestID:        testID,
		Text:          text,
		SequenceOrder: order,
		Points:        questionPoints,
	}
	if err := ts.DB.Create(&question).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

// SetOptions replaces a question's option set atomically. The batch must
// hold exactly four options with exactly one correct; letters A-D are
// assigned by position and any caller-supplied letters are ignored.
func (ts *TestService) SetOptions(questionID, ownerID uint, inputs []OptionInput) ([]models.AnswerOption, error) {
	var question models.Question
	if err := ts.DB.First(&question, questionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fail(ErrNotFound, "question %d", questionID)
		}
		return nil, err
	}
	test, err := ts.ownedTest(ts.DB, question.TestID, ownerID)
	if err != nil {
		return nil, err
	}
	if test.Published {
		return nil, fail(ErrInvalidState, "test %d is published; unpublish before editing options", test.ID)
	}
	open, err := ts.hasOpenAttempts(test.ID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, fail(ErrInvalidState, "test %d has attempts in progress; options are locked until they finish", test.ID)
	}

	if len(inputs) != models.OptionsPerQuestion {
		return nil, fail(ErrValidation, "a question requires exactly %d options, got %d", models.OptionsPerQuestion, len(inputs))
	}
	correct := 0
	for _, in := range inputs {
		if strings.TrimSpace(in.Text) == "" {
			return nil, fail(ErrValidation, "option text is required")
		}
		if in.Correct {
			correct++
		}
	}
	if correct != 1 {
		return nil, fail(ErrValidation, "exactly one option must be correct, got %d", correct)
	}

	options := make([]models.AnswerOption, 0, len(inputs))
	for i, in := range inputs {
		options = append(options, models.AnswerOption{
			QuestionID: questionID,
			Text:       in.Text,
			Letter:     models.OptionLetters[i],
			Correct:    in.Correct,
		})
	}

	err = ts.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("question_id = ?", questionID).
			Delete(&models.AnswerOption{}).Error; err != nil {
			return err
		}
		return tx.Create(&options).Error
	})
	if err != nil {
		return nil, err
	}
	return options, nil
}

func (ts *TestService) DeleteQuestion(questionID, ownerID uint) error {
	var question models.Question
	if err := ts.DB.First(&question, questionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(ErrNotFound, "question %d", questionID)
		}
		return err
	}
	test, err := ts.ownedTest(ts.DB, question.TestID, ownerID)
	if err != nil {
		return err
	}
	if test.Published {
		return fail(ErrInvalidState, "test %d is published; unpublish before deleting questions", test.ID)
	}
	open, err := ts.hasOpenAttempts(test.ID)
	if err != nil {
		return err
	}
	if open {
		return fail(ErrInvalidState, "test %d has attempts in progress; questions are locked until they finish", test.ID)
	}

	return ts.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("question_id = ?", questionID).Delete(&models.AnswerOption{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Question{}, questionID).Error
	})
}

// DeleteTest removes a test with everything hanging off it: questions,
// options, attempts and answers. Hard deletes; a soft-deleted test row
// would keep holding the one-test-per-course unique index slot.
func (ts *TestService) DeleteTest(testID, ownerID uint) error {
	if _, err := ts.ownedTest(ts.DB, testID, ownerID); err != nil {
		return err
	}

	return ts.DB.Transaction(func(tx *gorm.DB) error {
		var questionIDs []uint
		if err := tx.Model(&models.Question{}).Where("test_id = ?", testID).
			Pluck("id", &questionIDs).Error; err != nil {
			return err
		}
		if len(questionIDs) > 0 {
			if err := tx.Unscoped().Where("question_id IN ?", questionIDs).Delete(&models.AnswerOption{}).Error; err != nil {
				return err
			}
		}
		var attemptIDs []uint
		if err := tx.Model(&models.TestAttempt{}).Where("test_id = ?", testID).
			Pluck("id", &attemptIDs).Error; err != nil {
			return err
		}
		if len(attemptIDs) > 0 {
			if err := tx.Unscoped().Where("attempt_id IN ?", attemptIDs).Delete(&models.AttemptAnswer{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Unscoped().Where("test_id = ?", testID).Delete(&models.TestAttempt{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("test_id = ?", testID).Delete(&models.Question{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Test{}, testID).Error
	})
}

// Publish runs the publish gate and flips the flag. Publishing an
// already-published test is a no-op.
func (ts *TestService) Publish(testID, ownerID uint) (*models.Test, error) {
	test, err := ts.ownedTest(ts.DB, testID, ownerID)
	if err != nil {
		return nil, err
	}
	ok, err := ts.Validator.ValidateTestForPublish(testID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fail(ErrValidation, "test %d is not publishable: every question needs %d options with exactly one correct, and at least one question", testID, models.OptionsPerQuestion)
	}
	if !test.Published {
		test.Published = true
		if err := ts.DB.Save(test).Error; err != nil {
			return nil, err
		}
	}
	return test, nil
}

// Unpublish re-opens authoring. Always permitted for the owner.
func (ts *TestService) Unpublish(testID, ownerID uint) (*models.Test, error) {
	test, err := ts.ownedTest(ts.DB, testID, ownerID)
	if err != nil {
		return nil, err
	}
	if test.Published {
		test.Published = false
		if err := ts.DB.Save(test).Error; err != nil {
			return nil, err
		}
	}
	return test, nil
}

// GetTest loads a test with its full question set, in stored order.
func (ts *TestService) GetTest(testID uint) (*models.Test, error) {
	var test models.Test
	err := ts.DB.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence_order")
	}).Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("letter")
	}).First(&test, testID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fail(ErrNotFound, "test %d", testID)
		}
		return nil, err
	}
	return &test, nil
}

// Analytics returns every attempt on a test for its owner's dashboard.
func (ts *TestService) Analytics(testID, ownerID uint) ([]models.TestAttempt, error) {
	if _, err := ts.ownedTest(ts.DB, testID, ownerID); err != nil {
		return nil, err
	}
	var attempts []models.TestAttempt
	if err := ts.DB.Where("test_id = ?", testID).
		Order("user_id, attempt_number").Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}
