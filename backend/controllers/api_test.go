package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"edutest/backend/config"
	"edutest/backend/routes"
	"edutest/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	cfg := &config.Config{JWTSecret: "testsecret"}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, utils.Migrate(db))

	app := fiber.New()
	routes.SetupRoutes(app, db, cfg, utils.InitLogger())
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	return resp.StatusCode, result
}

func register(t *testing.T, app *fiber.App, username, role string) string {
	t.Helper()
	status, result := doJSON(t, app, "POST", "/api/auth/register", "", map[string]interface{}{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
		"role":     role,
	})
	require.Equal(t, fiber.StatusOK, status)
	return result["token"].(string)
}

func TestAssessmentFlow(t *testing.T) {
	app := newTestApp(t)

	instructor := register(t, app, "teacher1", "instructor")
	student := register(t, app, "learner1", "user")

	// instructor builds a course with a published two-question test
	status, result := doJSON(t, app, "POST", "/api/instructor/courses", instructor, map[string]interface{}{
		"title": "Intro to Go",
	})
	require.Equal(t, fiber.StatusOK, status)
	courseID := result["course"].(map[string]interface{})["ID"].(float64)

	status, result = doJSON(t, app, "POST", fmt.Sprintf("/api/instructor/courses/%.0f/test", courseID), instructor, map[string]interface{}{
		"title":         "Go Basics Quiz",
		"passing_score": 50.0,
	})
	require.Equal(t, fiber.StatusOK, status)
	testID := result["test"].(map[string]interface{})["ID"].(float64)

	// students cannot author
	status, _ = doJSON(t, app, "POST", fmt.Sprintf("/api/instructor/tests/%.0f/questions", testID), student, map[string]interface{}{
		"text": "nope",
	})
	assert.Equal(t, fiber.StatusForbidden, status)

	// publish is rejected while the test is empty
	status, _ = doJSON(t, app, "POST", fmt.Sprintf("/api/instructor/tests/%.0f/publish", testID), instructor, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	questionIDs := make([]float64, 0, 2)
	for _, text := range []string{"What declares a variable?", "What starts a goroutine?"} {
		status, result = doJSON(t, app, "POST", fmt.Sprintf("/api/instructor/tests/%.0f/questions", testID), instructor, map[string]interface{}{
			"text": text,
		})
		require.Equal(t, fiber.StatusOK, status)
		qid := result["question"].(map[string]interface{})["ID"].(float64)
		questionIDs = append(questionIDs, qid)

		status, _ = doJSON(t, app, "PUT", fmt.Sprintf("/api/instructor/questions/%.0f/options", qid), instructor, map[string]interface{}{
			"options": []map[string]interface{}{
				{"text": "right answer", "correct": true},
				{"text": "wrong one", "correct": false},
				{"text": "wrong two", "correct": false},
				{"text": "wrong three", "correct": false},
			},
		})
		require.Equal(t, fiber.StatusOK, status)
	}

	status, _ = doJSON(t, app, "POST", fmt.Sprintf("/api/instructor/tests/%.0f/publish", testID), instructor, nil)
	require.Equal(t, fiber.StatusOK, status)

	// learner view never leaks correct flags
	status, result = doJSON(t, app, "GET", fmt.Sprintf("/api/tests/%.0f", testID), student, nil)
	require.Equal(t, fiber.StatusOK, status)
	questions := result["test"].(map[string]interface{})["questions"].([]interface{})
	require.Len(t, questions, 2)
	firstOption := questions[0].(map[string]interface{})["options"].([]interface{})[0].(map[string]interface{})
	_, leaked := firstOption["correct"]
	assert.False(t, leaked)

	// eligibility, start, answer both questions correctly, submit
	status, result = doJSON(t, app, "GET", fmt.Sprintf("/api/tests/%.0f/eligibility", testID), student, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, result["can_start"])

	status, result = doJSON(t, app, "POST", fmt.Sprintf("/api/tests/%.0f/attempts", testID), student, nil)
	require.Equal(t, fiber.StatusOK, status)
	attemptID := result["attempt"].(map[string]interface{})["ID"].(float64)
	presented := result["questions"].([]interface{})
	require.Len(t, presented, 2)

	for _, raw := range presented {
		q := raw.(map[string]interface{})
		var optionID float64
		for _, o := range q["options"].([]interface{}) {
			option := o.(map[string]interface{})
			if option["text"] == "right answer" {
				optionID = option["id"].(float64)
			}
		}
		status, _ = doJSON(t, app, "PUT", fmt.Sprintf("/api/attempts/%.0f/answers", attemptID), student, map[string]interface{}{
			"question_id":        q["id"],
			"selected_option_id": optionID,
		})
		require.Equal(t, fiber.StatusOK, status)
	}

	// another user cannot touch this attempt
	status, _ = doJSON(t, app, "POST", fmt.Sprintf("/api/attempts/%.0f/submit", attemptID), instructor, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, result = doJSON(t, app, "POST", fmt.Sprintf("/api/attempts/%.0f/submit", attemptID), student, nil)
	require.Equal(t, fiber.StatusOK, status)
	attempt := result["attempt"].(map[string]interface{})
	assert.Equal(t, "COMPLETED", attempt["Status"])
	assert.Equal(t, true, attempt["Passed"])
	assert.InDelta(t, 100.0, attempt["ScorePercentage"].(float64), 0.001)

	// double submit is a state conflict
	status, _ = doJSON(t, app, "POST", fmt.Sprintf("/api/attempts/%.0f/submit", attemptID), student, nil)
	assert.Equal(t, fiber.StatusConflict, status)

	// passing earned a certificate; its code verifies publicly
	status, result = doJSON(t, app, "GET", "/api/certificates", student, nil)
	require.Equal(t, fiber.StatusOK, status)
	certs := result["certificates"].([]interface{})
	require.Len(t, certs, 1)
	code := certs[0].(map[string]interface{})["Code"].(string)

	status, result = doJSON(t, app, "GET", "/api/certificates/verify/"+code, "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, result["valid"])

	// instructor analytics reflect the passed attempt
	status, result = doJSON(t, app, "GET", fmt.Sprintf("/api/instructor/tests/%.0f/analytics", testID), instructor, nil)
	require.Equal(t, fiber.StatusOK, status)
	analytics := result["analytics"].(map[string]interface{})
	assert.Equal(t, 1.0, analytics["total_attempts"].(float64))
	assert.Equal(t, 1.0, analytics["passed_count"].(float64))
}

func TestUnauthorizedRequests(t *testing.T) {
	app := newTestApp(t)

	status, _ := doJSON(t, app, "GET", "/api/attempts", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = doJSON(t, app, "POST", "/api/instructor/courses", "garbage-token", map[string]interface{}{
		"title": "X",
	})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestOneTestPerCourseOverHTTP(t *testing.T) {
	app := newTestApp(t)
	instructor := register(t, app, "teacher2", "instructor")

	status, result := doJSON(t, app, "POST", "/api/instructor/courses", instructor, map[string]interface{}{
		"title": "Solo Course",
	})
	require.Equal(t, fiber.StatusOK, status)
	courseID := result["course"].(map[string]interface{})["ID"].(float64)

	status, _ = doJSON(t, app, "POST", fmt.Sprintf("/api/instructor/courses/%.0f/test", courseID), instructor, map[string]interface{}{
		"title": "First",
	})
	require.Equal(t, fiber.StatusOK, status)

	status, _ = doJSON(t, app, "POST", fmt.Sprintf("/api/instructor/courses/%.0f/test", courseID), instructor, map[string]interface{}{
		"title": "Second",
	})
	assert.Equal(t, fiber.StatusConflict, status)
}
