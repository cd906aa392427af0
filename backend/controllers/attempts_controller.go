package controllers

import (
	"strconv"

	"edutest/backend/config"
	"edutest/backend/models"
	"edutest/backend/services"
	"edutest/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type AttemptsController struct {
	Cfg      *config.Config
	Attempts *services.AttemptService
}

func NewAttemptsController(attempts *services.AttemptService, cfg *config.Config) *AttemptsController {
	return &AttemptsController{Cfg: cfg, Attempts: attempts}
}

// ownAttempt loads the attempt and rejects callers who don't own it.
func (ac *AttemptsController) ownAttempt(c *fiber.Ctx, userID uint) (*models.TestAttempt, error) {
	attemptID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid attempt ID")
	}
	attempt, err := ac.Attempts.GetAttempt(uint(attemptID))
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, fiber.NewError(fiber.StatusForbidden, "Not your attempt")
	}
	return attempt, nil
}

func (ac *AttemptsController) respond(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	return utils.EngineError(c, err)
}

// [+] GetEligibility godoc
// @Summary Check whether the caller may start an attempt
// @Tags attempts
// @Router /tests/{id}/eligibility [get]
func (ac *AttemptsController) GetEligibility(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ac.Cfg)
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

	ok, err := ac.Attempts.CanStartAttempt(userID, uint(testID))
	if err != nil {
		return utils.EngineError(c, err)
	}

	return c.JSON(fiber.Map{
		"can_start": ok,
	})
}

// [+] StartAttempt godoc
// @Summary Start a new attempt
// @Description Returns the attempt with this attempt's question presentation order
// @Tags attempts
// @Router /tests/{id}/attempts [post]
func (ac *AttemptsController) StartAttempt(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ac.Cfg)
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

	attempt, questions, err := ac.Attempts.StartAttempt(userID, uint(testID))
	if err != nil {
		return utils.EngineError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":   "Attempt started",
		"attempt":   attempt,
		"questions": questions,
	})
}

// [+] RecordAnswer godoc
// @Summary Record or replace the answer to one question
// @Tags attempts
// @Router /attempts/{id}/answers [put]
func (ac *AttemptsController) RecordAnswer(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ac.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	attempt, err := ac.ownAttempt(c, userID)
	if err != nil {
		return ac.respond(c, err)
	}

	var input struct {
		QuestionID       uint `json:"question_id"`
		SelectedOptionID uint `json:"selected_option_id"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	answer, err := ac.Attempts.RecordAnswer(attempt.ID, input.QuestionID, input.SelectedOptionID)
	if err != nil {
		return utils.EngineError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Answer recorded",
		"answer": fiber.Map{
			"question_id":        answer.QuestionID,
			"selected_option_id": answer.SelectedOptionID,
		},
	})
}

// [+] SubmitAttempt godoc
// @Summary Submit and score an attempt
// @Tags attempts
// @Router /attempts/{id}/submit [post]
func (ac *AttemptsController) SubmitAttempt(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ac.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	attempt, err := ac.ownAttempt(c, userID)
	if err != nil {
		return ac.respond(c, err)
	}

	scored, err := ac.Attempts.SubmitAttempt(attempt.ID)
	if err != nil {
		return utils.EngineError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Attempt submitted",
		"attempt": scored,
	})
}

// [+] AbandonAttempt godoc
// @Summary Abandon an attempt without scoring
// @Tags attempts
// @Router /attempts/{id}/abandon [post]
func (ac *AttemptsController) AbandonAttempt(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ac.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	attempt, err := ac.ownAttempt(c, userID)
	if err != nil {
		return ac.respond(c, err)
	}

	abandoned, err := ac.Attempts.AbandonAttempt(attempt.ID)
	if err != nil {
		return utils.EngineError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Attempt abandoned",
		"attempt": abandoned,
	})
}

// [+] GetAttempt godoc
// @Summary Get one of the caller's attempts with its answers
// @Tags attempts
// @Router /attempts/{id} [get]
func (ac *AttemptsController) GetAttempt(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ac.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	attempt, err := ac.ownAttempt(c, userID)
	if err != nil {
		return ac.respond(c, err)
	}

	return c.JSON(fiber.Map{
		"attempt": attempt,
	})
}

// [+] ListAttempts godoc
// @Summary List the caller's attempt history
// @Tags attempts
// @Router /attempts [get]
func (ac *AttemptsController) ListAttempts(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ac.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	attempts, err := ac.Attempts.ListUserAttempts(userID)
	if err != nil {
		return utils.EngineError(c, err)
	}

	return c.JSON(fiber.Map{
		"attempts": attempts,
	})
}
