package server

import (
	"errors"
	"fmt"

	"ledgerchat/internal/assistant"
	"ledgerchat/internal/knowledge"
	"ledgerchat/internal/logging"
	"ledgerchat/internal/session"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Error is the JSON body of every non-validation failure.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

func (e Error) Error() string {
	return e.Message
}

func NewError(code int, msg string) Error {
	return Error{Code: code, Message: msg}
}

// ValidationError carries per-field messages, keyed by JSON field name.
type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(fields map[string]string) ValidationError {
	return ValidationError{Status: fiber.StatusUnprocessableEntity, Errors: fields}
}

func ErrBadRequest() Error {
	return NewError(fiber.StatusBadRequest, "invalid JSON request")
}

func ErrNotFound(resource, id string) Error {
	return NewError(fiber.StatusNotFound, fmt.Sprintf("%s with %s not found", resource, id))
}

// ErrorHandler renders handler errors. Domain errors are mapped to status codes
// here so handlers can return them unchanged.
func ErrorHandler(c *fiber.Ctx, err error) error {
	err = validationFailure(err)

	var valErr ValidationError
	if errors.As(err, &valErr) {
		return c.Status(valErr.Status).JSON(valErr)
	}

	apiErr := toAPIError(err)
	if apiErr.Code >= fiber.StatusInternalServerError {
		logging.APIError("%s %s failed with %d: %v", c.Method(), c.Path(), apiErr.Code, err)
	} else {
		logging.APIDebug("%s %s rejected with %d: %s", c.Method(), c.Path(), apiErr.Code, apiErr.Message)
	}
	return c.Status(apiErr.Code).JSON(apiErr)
}

func toAPIError(err error) Error {
	var (
		apiErr   Error
		fiberErr *fiber.Error
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &fiberErr):
		return NewError(fiberErr.Code, fiberErr.Message)
	case errors.Is(err, knowledge.ErrNotFound):
		return NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, knowledge.ErrLastGroup), errors.Is(err, session.ErrRequestInFlight):
		return NewError(fiber.StatusConflict, err.Error())
	default:
		return NewError(fiber.StatusInternalServerError, err.Error())
	}
}

// validationFailure converts a knowledge or request validation failure into a
// ValidationError, or returns err unchanged.
func validationFailure(err error) error {
	var kvErr *knowledge.ValidationError
	if errors.As(err, &kvErr) {
		return NewValidationError(kvErr.Fields)
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, e := range verrs {
			fields[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return NewValidationError(fields)
	}
	switch {
	case errors.Is(err, assistant.ErrEmptyQuery):
		return NewValidationError(map[string]string{"query": "must not be empty"})
	case errors.Is(err, assistant.ErrInvalidComplexity):
		return NewValidationError(map[string]string{"complexity": "must be simple, moderate or complex"})
	}
	return err
}
