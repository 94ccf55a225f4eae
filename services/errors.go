package services

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Error kinds returned to API clients alongside a short reason. Handlers
// translate these to HTTP status codes; internal details never leave the
// server.
const (
	KindValidation  = "validation"
	KindNotFound    = "not_found"
	KindState       = "state"
	KindPersistence = "persistence"
)

// AppError pairs a machine-checkable kind with a human-readable reason.
type AppError struct {
	Kind   string
	Reason string
}

func (e *AppError) Error() string { return e.Reason }

func NewValidationError(reason string) *AppError {
	return &AppError{Kind: KindValidation, Reason: reason}
}

func NewNotFoundError(reason string) *AppError {
	return &AppError{Kind: KindNotFound, Reason: reason}
}

func NewStateError(reason string) *AppError {
	return &AppError{Kind: KindState, Reason: reason}
}

func NewPersistenceError(reason string) *AppError {
	return &AppError{Kind: KindPersistence, Reason: reason}
}

// HTTPStatus maps the error kind to its response status code.
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return fiber.StatusBadRequest
	case KindNotFound:
		return fiber.StatusNotFound
	case KindState:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondError renders err as the standard error payload. Errors that are
// not AppErrors surface as a generic persistence failure.
func RespondError(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.HTTPStatus()).JSON(fiber.Map{
			"error": appErr.Reason,
			"kind":  appErr.Kind,
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
		"kind":  KindPersistence,
	})
}
