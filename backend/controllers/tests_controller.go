package controllers

import (
	"strconv"

	"edutest/backend/config"
	"edutest/backend/models"
	"edutest/backend/services"
	"edutest/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type TestsController struct {
	Cfg   *config.Config
	Tests *services.TestService
}

func NewTestsController(tests *services.TestService, cfg *config.Config) *TestsController {
	return &TestsController{Cfg: cfg, Tests: tests}
}

type testInput struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	PassingScore     *float64 `json:"passing_score"`
	TimeLimitMinutes *int     `json:"time_limit_minutes"`
	ShuffleQuestions bool     `json:"shuffle_questions"`
	ShuffleOptions   bool     `json:"shuffle_options"`
	MaxAttempts      *int     `json:"max_attempts"`
}

// [+] CreateTest godoc
// @Summary Create a test for a course
// @Description One test per course; new tests start unpublished
// @Tags tests
// @Accept json
// @Produce json
// @Router /instructor/courses/{id}/test [post]
func (tc *TestsController) CreateTest(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid course ID",
		})
	}

	var input testInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	test, err := tc.Tests.CreateTest(uint(courseID), userID, services.TestDefinition{
		Title:            input.Title,
		Description:      input.Description,
		PassingScore:     input.PassingScore,
		TimeLimitMinutes: input.TimeLimitMinutes,
		ShuffleQuestions: input.ShuffleQuestions,
		ShuffleOptions:   input.ShuffleOptions,
		MaxAttempts:      input.MaxAttempts,
	})
	if err != nil {
		return utils.EngineError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Test created",
		"test":    test,
	})
}

// [+] UpdateTest godoc
// @Summary Update test metadata
// @Description Metadata stays editable after publish; only questions lock
// @Tags tests
// @Router /instructor/tests/{id} [put]
func (tc *TestsController) UpdateTest(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	testID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test ID",
		})
	}

	var input struct {
		Title            *string  `json:"title"`
		Description      *string  `json:"description"`
		PassingScore     *float64 `json:"passing_score"`
		TimeLimitMinutes *int     `json:"time_limit_minutes"`
		ShuffleQuestions *bool    `json:"shuffle_questions"`
		ShuffleOptions   *bool    `json:"shuffle_options"`
		MaxAttempts      *int     `json:"max_attempts"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	test, err := tc.Tests.UpdateTest(uint(testID), userID, services.TestPatch{
		Title:            input.Title,
		Description:      input.Description,
		PassingScore:     input.PassingScore,
		TimeLimitMinutes: input.TimeLimitMinutes,
		ShuffleQuestions: input.ShuffleQuestions,
		ShuffleOptions:   input.ShuffleOptions,
		MaxAttempts:      input.MaxAttempts,
	})
	if err != nil {
		return utils.EngineError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Test updated",
		"test":    test,
	})
}

// [+] DeleteTest godoc
// @Summary Delete a test and everything attached to it
// @Tags tests
// @Router /instructor/tests/{id} [delete]
func (tc *TestsController) DeleteTest(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	testID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test ID",
		})
	}

	if err := tc.Tests.DeleteTest(uint(testID), userID); err != nil {
		return utils.EngineError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Test deleted",
	})
}

// [+] AddQuestion godoc
// @Summary Add a question to an unpublished test
// @Tags tests
// @Router /instructor/tests/{id}/questions [post]
func (tc *TestsController) AddQuestion(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	testID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test ID",
		})
	}

	var input struct {
		Text   string   `json:"text"`
		Points *float64 `json:"points"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	question, err := tc.Tests.AddQuestion(uint(testID), userID, input.Text, input.Points)
	if err != nil {
		return utils.EngineError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":  "Question added",
		"question": question,
	})
}

// [+] SetOptions godoc
// @Summary Replace a question's option set
// @Description Exactly four options, exactly one correct; letters A-D assigned by position
// @Tags tests
// @Router /instructor/questions/{id}/options [put]
func (tc *TestsController) SetOptions(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	questionID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid question ID",
		})
	}

	var input struct {
		Options []struct {
			Text    string `json:"text"`
			Correct bool   `json:"correct"`
		} `json:"options"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	inputs := make([]services.OptionInput, 0, len(input.Options))
	for _, o := range input.Options {
		inputs = append(inputs, services.OptionInput{Text: o.Text, Correct: o.Correct})
	}

	options, err := tc.Tests.SetOptions(uint(questionID), userID, inputs)
	if err != nil {
		return utils.EngineError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Options saved",
		"options": options,
	})
}

// [+] DeleteQuestion godoc
// @Summary Delete a question and its options
// @Tags tests
// @Router /instructor/questions/{id} [delete]
func (tc *TestsController) DeleteQuestion(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	questionID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid question ID",
		})
	}

	if err := tc.Tests.DeleteQuestion(uint(questionID), userID); err != nil {
		return utils.EngineError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Question deleted",
	})
}

// [+] Publish godoc
// @Summary Publish a test after validation
// @Tags tests
// @Router /instructor/tests/{id}/publish [post]
func (tc *TestsController) Publish(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	testID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test ID",
		})
	}

	test, err := tc.Tests.Publish(uint(testID), userID)
	if err != nil {
		return utils.EngineError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Test published",
		"test":    test,
	})
}

// [+] Unpublish godoc
// @Summary Unpublish a test, re-opening authoring
// @Tags tests
// @Router /instructor/tests/{id}/unpublish [post]
func (tc *TestsController) Unpublish(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	testID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test ID",
		})
	}

	test, err := tc.Tests.Unpublish(uint(testID), userID)
	if err != nil {
		return utils.EngineError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Test unpublished",
		"test":    test,
	})
}

// [+] GetTestDetails godoc
// @Summary Get a test as seen by a learner
// @Description Correct flags are stripped; unpublished tests are hidden
// @Tags tests
// @Router /tests/{id} [get]
func (tc *TestsController) GetTestDetails(c *fiber.Ctx) error {
	if _, err := utils.ExtractUserIDFromToken(c, tc.Cfg); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	testID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test ID",
		})
	}

	test, err := tc.Tests.GetTest(uint(testID))
	if err != nil {
		return utils.EngineError(c, err)
	}
	if !test.Published {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Test not found",
		})
	}

	// learner view: never leak which option is correct
	questions := make([]fiber.Map, 0, len(test.Questions))
	for _, q := range test.Questions {
		options := make([]fiber.Map, 0, len(q.Options))
		for _, o := range q.Options {
			options = append(options, fiber.Map{
				"id":     o.ID,
				"letter": o.Letter,
				"text":   o.Text,
			})
		}
		questions = append(questions, fiber.Map{
			"id":      q.ID,
			"text":    q.Text,
			"points":  q.Points,
			"order":   q.SequenceOrder,
			"options": options,
		})
	}

	return c.JSON(fiber.Map{
		"test": fiber.Map{
			"id":                 test.ID,
			"course_id":          test.CourseID,
			"title":              test.Title,
			"description":        test.Description,
			"passing_score":      test.PassingScore,
			"time_limit_minutes": test.TimeLimitMinutes,
			"max_attempts":       test.MaxAttempts,
			"questions":          questions,
		},
	})
}

// [+] GetTestAnalytics godoc
// @Summary Per-test attempt analytics for the owner
// @Tags tests
// @Router /instructor/tests/{id}/analytics [get]
func (tc *TestsController) GetTestAnalytics(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	testID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test ID",
		})
	}

	attempts, err := tc.Tests.Analytics(uint(testID), userID)
	if err != nil {
		return utils.EngineError(c, err)
	}

	rows := make([]fiber.Map, 0, len(attempts))
	passed := 0
	for _, a := range attempts {
		if a.Status == models.AttemptCompleted && a.Passed {
			passed++
		}
		rows = append(rows, fiber.Map{
			"user_id":            a.UserID,
			"attempt_number":     a.AttemptNumber,
			"status":             a.Status,
			"score":              a.ScorePercentage,
			"passed":             a.Passed,
			"time_spent_seconds": a.TimeSpentSeconds,
		})
	}

	return c.JSON(fiber.Map{
		"analytics": fiber.Map{
			"attempts":       rows,
			"total_attempts": len(attempts),
			"passed_count":   passed,
		},
	})
}
