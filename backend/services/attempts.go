package services

import (
	"errors"
	"log"
	"math/rand"
	"time"

	"edutest/backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AttemptService drives the attempt state machine: eligibility, start,
// answer recording, submission, timeout and abandonment. The clock is
// injected so tests control time. The service owns no scheduler; an
// expired deadline is enforced lazily whenever the attempt is touched,
// or by an external caller invoking TimeoutAttempt.
type AttemptService struct {
	DB           *gorm.DB
	Certificates *CertificateService
	Logger       *log.Logger
	Now          func() time.Time
}

func NewAttemptService(db *gorm.DB, certs *CertificateService, logger *log.Logger) *AttemptService {
	return &AttemptService{DB: db, Certificates: certs, Logger: logger, Now: time.Now}
}

// PresentedOption and PresentedQuestion form the per-attempt view handed
// to the taker. Shuffling permutes these copies only; stored order and
// correct flags are never touched, and correctness is never exposed.
type PresentedOption struct {
	ID     uint   `json:"id"`
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

type PresentedQuestion struct {
	ID      uint              `json:"id"`
	Text    string            `json:"text"`
	Points  float64           `json:"points"`
	Options []PresentedOption `json:"options"`
}

// CanStartAttempt reports whether the user could start an attempt now:
// the test is published and the attempt limit is not exhausted. This is
// advisory; StartAttempt re-checks atomically.
func (as *AttemptService) CanStartAttempt(userID, testID uint) (bool, error) {
	var test models.Test
	if err := as.DB.First(&test, testID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fail(ErrNotFound, "test %d", testID)
		}
		return false, err
	}
	if !test.Published {
		return false, nil
	}
	if test.MaxAttempts == nil {
		return true, nil
	}
	var used int64
	if err := as.DB.Model(&models.TestAttempt{}).
		Where("test_id = ? AND user_id = ?", testID, userID).Count(&used).Error; err != nil {
		return false, err
	}
	return used < int64(*test.MaxAttempts), nil
}

// StartAttempt creates the next attempt for (user, test). The whole
// check-and-create runs in one transaction holding a row lock on the
// test, so two concurrent starts cannot both take the last slot; the
// unique (test, user, number) index backstops the numbering either way.
// Totals are frozen here and the shuffled presentation is derived for
// this attempt only.
func (as *AttemptService) StartAttempt(userID, testID uint) (*models.TestAttempt, []PresentedQuestion, error) {
	now := as.Now()
	var attempt models.TestAttempt
	var questions []models.Question

	err := as.DB.Transaction(func(tx *gorm.DB) error {
		var test models.Test
		if err := lockForUpdate(tx).First(&test, testID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fail(ErrNotFound, "test %d", testID)
			}
			return err
		}
		if !test.Published {
			return fail(ErrNotAvailable, "test %d is not published", testID)
		}

		var used int64
		if err := tx.Model(&models.TestAttempt{}).
			Where("test_id = ? AND user_id = ?", testID, userID).Count(&used).Error; err != nil {
			return err
		}
		if test.MaxAttempts != nil && used >= int64(*test.MaxAttempts) {
			return fail(ErrNotAvailable, "attempt limit of %d reached for test %d", *test.MaxAttempts, testID)
		}

		if err := tx.Preload("Options").Where("test_id = ?", testID).
			Order("sequence_order").Find(&questions).Error; err != nil {
			return err
		}
		if len(questions) == 0 {
			return fail(ErrInvalidState, "test %d has no questions", testID)
		}

		totalPoints := 0.0
		for _, q := range questions {
			totalPoints += q.Points
		}

		attempt = models.TestAttempt{
			TestID:         testID,
			UserID:         userID,
			CourseID:       test.CourseID,
			AttemptNumber:  int(used) + 1,
			TotalQuestions: len(questions),
			TotalPoints:    totalPoints,
			Status:         models.AttemptInProgress,
			StartedAt:      now,
		}
		if err := tx.Create(&attempt).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fail(ErrConflict, "concurrent attempt start for test %d", testID)
			}
			return err
		}

		// presentation order decided inside the same unit of work so the
		// attempt row and its view never disagree on the question set
		questions = presentationOrder(questions, testShuffle{test.ShuffleQuestions, test.ShuffleOptions})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	presented := make([]PresentedQuestion, 0, len(questions))
	for _, q := range questions {
		pq := PresentedQuestion{ID: q.ID, Text: q.Text, Points: q.Points}
		for _, o := range q.Options {
			pq.Options = append(pq.Options, PresentedOption{ID: o.ID, Letter: o.Letter, Text: o.Text})
		}
		presented = append(presented, pq)
	}
	return &attempt, presented, nil
}

// lockForUpdate adds SELECT ... FOR UPDATE where the dialect supports
// it. SQLite has no row locks but serializes writers on its own.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

type testShuffle struct {
	questions bool
	options   bool
}

// presentationOrder returns permuted copies; the input slices backing
// stored state are left in canonical order.
func presentationOrder(questions []models.Question, shuffle testShuffle) []models.Question {
	out := make([]models.Question, len(questions))
	copy(out, questions)
	if shuffle.questions {
		rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}
	if shuffle.options {
		for i := range out {
			opts := make([]models.AnswerOption, len(out[i].Options))
			copy(opts, out[i].Options)
			rand.Shuffle(len(opts), func(a, b int) { opts[a], opts[b] = opts[b], opts[a] })
			out[i].Options = opts
		}
	}
	return out
}

// RecordAnswer upserts the selection for (attempt, question). Correctness
// is not computed here; changing an answer before submission is a cheap
// replace with no other side effects. An attempt past its deadline is
// timed out instead of accepting the answer.
func (as *AttemptService) RecordAnswer(attemptID, questionID, selectedOptionID uint) (*models.AttemptAnswer, error) {
	attempt, test, err := as.loadAttempt(attemptID)
	if err != nil {
		return nil, err
	}
	if as.deadlinePassed(attempt, test) {
		if _, err := as.TimeoutAttempt(attemptID); err != nil && !errors.Is(err, ErrInvalidState) {
			return nil, err
		}
		return nil, fail(ErrInvalidState, "attempt %d exceeded its time limit", attemptID)
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, fail(ErrInvalidState, "attempt %d is %s", attemptID, attempt.Status)
	}

	var question models.Question
	if err := as.DB.Where("id = ? AND test_id = ?", questionID, attempt.TestID).
		First(&question).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fail(ErrNotFound, "question %d in test %d", questionID, attempt.TestID)
		}
		return nil, err
	}
	var option models.AnswerOption
	if err := as.DB.Where("id = ? AND question_id = ?", selectedOptionID, questionID).
		First(&option).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fail(ErrValidation, "option %d does not belong to question %d", selectedOptionID, questionID)
		}
		return nil, err
	}

	answer := models.AttemptAnswer{
		AttemptID:        attemptID,
		QuestionID:       questionID,
		SelectedOptionID: selectedOptionID,
		AnsweredAt:       as.Now(),
	}
	err = as.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"selected_option_id", "answered_at", "updated_at"}),
	}).Create(&answer).Error
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

// SubmitAttempt scores the attempt and completes it. The IN_PROGRESS to
// COMPLETED transition is a guarded update, so a submit racing a timeout
// (or a double submit) scores exactly once.
func (as *AttemptService) SubmitAttempt(attemptID uint) (*models.TestAttempt, error) {
	return as.complete(attemptID)
}

// TimeoutAttempt is submission triggered by the deadline watchdog rather
// than the user; whatever was answered before the cutoff is scored.
func (as *AttemptService) TimeoutAttempt(attemptID uint) (*models.TestAttempt, error) {
	return as.complete(attemptID)
}

func (as *AttemptService) complete(attemptID uint) (*models.TestAttempt, error) {
	now := as.Now()
	var final models.TestAttempt

	err := as.DB.Transaction(func(tx *gorm.DB) error {
		var attempt models.TestAttempt
		if err := tx.First(&attempt, attemptID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fail(ErrNotFound, "attempt %d", attemptID)
			}
			return err
		}
		var test models.Test
		if err := tx.First(&test, attempt.TestID).Error; err != nil {
			return err
		}

		var questions []models.Question
		if err := tx.Preload("Options").Where("test_id = ?", attempt.TestID).
			Find(&questions).Error; err != nil {
			return err
		}
		var answers []models.AttemptAnswer
		if err := tx.Where("attempt_id = ?", attemptID).Find(&answers).Error; err != nil {
			return err
		}
		selections := make(map[uint]uint, len(answers))
		for _, a := range answers {
			selections[a.QuestionID] = a.SelectedOptionID
		}

		score := ScoreAttempt(questions, selections, test.PassingScore)

		// percentage against the totals frozen at start, so definition
		// edits made mid-attempt cannot move the goalposts
		percentage := 0.0
		if attempt.TotalPoints > 0 {
			percentage = score.EarnedPoints / attempt.TotalPoints * 100
		}
		passed := percentage >= test.PassingScore

		res := tx.Model(&models.TestAttempt{}).
			Where("id = ? AND status = ?", attemptID, models.AttemptInProgress).
			Updates(map[string]interface{}{
				"status":             models.AttemptCompleted,
				"earned_points":      score.EarnedPoints,
				"score_percentage":   percentage,
				"passed":             passed,
				"completed_at":       now,
				"time_spent_seconds": int(now.Sub(attempt.StartedAt).Seconds()),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// lost the race to another transition; report where it landed
			if err := tx.First(&attempt, attemptID).Error; err != nil {
				return err
			}
			return fail(ErrInvalidState, "attempt %d is already %s", attemptID, attempt.Status)
		}

		for _, r := range score.Results {
			if !r.Answered {
				continue // unanswered questions get no fabricated rows
			}
			if err := tx.Model(&models.AttemptAnswer{}).
				Where("attempt_id = ? AND question_id = ?", attemptID, r.QuestionID).
				Updates(map[string]interface{}{
					"correct":       r.Correct,
					"points_earned": r.PointsEarned,
				}).Error; err != nil {
				return err
			}
		}

		return tx.First(&final, attemptID).Error
	})
	if err != nil {
		return nil, err
	}

	// Certificate issuance is best-effort: the scored attempt is the
	// durable outcome and must not be rolled back by a failure here.
	if final.Passed {
		if _, err := as.Certificates.IssueIfPassed(final.UserID, final.CourseID, final.TestID, final.ID, final.ScorePercentage); err != nil {
			as.Logger.Printf("certificate issuance failed for user %d course %d: %v", final.UserID, final.CourseID, err)
		}
	}
	return &final, nil
}

// AbandonAttempt exits without scoring. Passed stays false no matter what
// was answered, and the attempt still counts toward the limit.
func (as *AttemptService) AbandonAttempt(attemptID uint) (*models.TestAttempt, error) {
	now := as.Now()
	var attempt models.TestAttempt
	if err := as.DB.First(&attempt, attemptID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fail(ErrNotFound, "attempt %d", attemptID)
		}
		return nil, err
	}

	res := as.DB.Model(&models.TestAttempt{}).
		Where("id = ? AND status = ?", attemptID, models.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":             models.AttemptAbandoned,
			"completed_at":       now,
			"time_spent_seconds": int(now.Sub(attempt.StartedAt).Seconds()),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if err := as.DB.First(&attempt, attemptID).Error; err != nil {
			return nil, err
		}
		return nil, fail(ErrInvalidState, "attempt %d is already %s", attemptID, attempt.Status)
	}

	if err := as.DB.First(&attempt, attemptID).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

// GetAttempt loads an attempt with its answers.
func (as *AttemptService) GetAttempt(attemptID uint) (*models.TestAttempt, error) {
	var attempt models.TestAttempt
	if err := as.DB.Preload("Answers").First(&attempt, attemptID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fail(ErrNotFound, "attempt %d", attemptID)
		}
		return nil, err
	}
	return &attempt, nil
}

// ListUserAttempts returns the user's attempt history, newest first.
func (as *AttemptService) ListUserAttempts(userID uint) ([]models.TestAttempt, error) {
	var attempts []models.TestAttempt
	if err := as.DB.Where("user_id = ?", userID).
		Order("started_at DESC").Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (as *AttemptService) loadAttempt(attemptID uint) (*models.TestAttempt, *models.Test, error) {
	var attempt models.TestAttempt
	if err := as.DB.First(&attempt, attemptID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fail(ErrNotFound, "attempt %d", attemptID)
		}
		return nil, nil, err
	}
	var test models.Test
	if err := as.DB.First(&test, attempt.TestID).Error; err != nil {
		return nil, nil, err
	}
	return &attempt, &test, nil
}

func (as *AttemptService) deadlinePassed(attempt *models.TestAttempt, test *models.Test) bool {
	if attempt.Status != models.AttemptInProgress || test.TimeLimitMinutes == nil {
		return false
	}
	limit := time.Duration(*test.TimeLimitMinutes) * time.Minute
	return as.Now().Sub(attempt.StartedAt) >= limit
}
