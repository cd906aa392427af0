package services

import (
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"edutest/backend/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Test{},
		&models.Question{},
		&models.AnswerOption{},
		&models.TestAttempt{},
		&models.AttemptAnswer{},
		&models.Certificate{},
	))
	return db
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func seedUser(t *testing.T, db *gorm.DB, username, role string) models.User {
	t.Helper()
	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedCourse(t *testing.T, db *gorm.DB, authorID uint) models.Course {
	t.Helper()
	course := models.Course{Title: "Go Fundamentals", AuthorID: authorID}
	require.NoError(t, db.Create(&course).Error)
	return course
}

// fourOptions builds a valid option batch with the option at correctIdx
// marked correct.
func fourOptions(correctIdx int) []OptionInput {
	inputs := make([]OptionInput, 4)
	for i := range inputs {
		inputs[i] = OptionInput{Text: fmt.Sprintf("choice %d", i+1), Correct: i == correctIdx}
	}
	return inputs
}

// seedPublishedTest authors and publishes a test with numQuestions
// questions, each worth 1 point with option A correct.
func seedPublishedTest(t *testing.T, db *gorm.DB, ts *TestService, ownerID, courseID uint, numQuestions int, def TestDefinition) *models.Test {
	t.Helper()
	if def.Title == "" {
		def.Title = "Final Exam"
	}
	test, err := ts.CreateTest(courseID, ownerID, def)
	require.NoError(t, err)

	for i := 0; i < numQuestions; i++ {
		q, err := ts.AddQuestion(test.ID, ownerID, fmt.Sprintf("question %d", i+1), nil)
		require.NoError(t, err)
		_, err = ts.SetOptions(q.ID, ownerID, fourOptions(0))
		require.NoError(t, err)
	}

	published, err := ts.Publish(test.ID, ownerID)
	require.NoError(t, err)
	return published
}

// correctOptionID returns the ID of the correct option of a question.
func correctOptionID(t *testing.T, db *gorm.DB, questionID uint) uint {
	t.Helper()
	var option models.AnswerOption
	require.NoError(t, db.Where("question_id = ? AND correct = ?", questionID, true).First(&option).Error)
	return option.ID
}

// wrongOptionID returns the ID of one incorrect option of a question.
func wrongOptionID(t *testing.T, db *gorm.DB, questionID uint) uint {
	t.Helper()
	var option models.AnswerOption
	require.NoError(t, db.Where("question_id = ? AND correct = ?", questionID, false).First(&option).Error)
	return option.ID
}

// fixedClock returns a clock stuck at the given instant.
func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func floatPtr(v float64) *float64 { return &v }
