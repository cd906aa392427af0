package services

import (
	"errors"
	"fmt"
)

// Error kinds returned by the engine. Callers branch with errors.Is
// instead of matching message text.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrValidation       = errors.New("validation failed")
	ErrInvalidState     = errors.New("invalid state")
	ErrNotAvailable     = errors.New("not available")
)

// fail wraps a formatted message with one of the error kinds above.
func fail(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), kind)
}
