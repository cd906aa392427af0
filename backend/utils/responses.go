package utils

import (
	"errors"
	"net/http"

	"edutest/backend/services"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse is the JSON shape for failed requests.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Error writes a JSON error response with the given status.
func Error(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(ErrorResponse{
		Success: false,
		Error:   http.StatusText(status),
		Message: err.Error(),
	})
}

// EngineError maps an engine error kind to its HTTP status and writes
// the response. Unknown errors become a 500.
func EngineError(c *fiber.Ctx, err error) error {
	return Error(c, StatusForError(err), err)
}

// StatusForError translates engine error kinds to HTTP statuses.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrPermissionDenied):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrValidation):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, services.ErrInvalidState):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrNotAvailable):
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}
