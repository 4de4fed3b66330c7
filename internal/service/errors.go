package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kirychukyurii/hostdesk/internal/repository"
)

var (
	// ErrNotFound is returned for an unknown host IP or channel summary
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a mutation's precondition does not hold
	ErrConflict = errors.New("conflict")
	// ErrValidation is returned for malformed query parameters or payloads
	ErrValidation = errors.New("validation failed")
	// ErrTransient is returned when the store failed or timed out; safe to retry
	ErrTransient = errors.New("store temporarily unavailable")
)

// ValidationError carries per-field messages. It matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(e.Fields))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) hold for every ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// fromValidator converts go-playground validation errors into a ValidationError
// keyed by JSON field name
func fromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		return "must not be empty"
	case "oneof":
		return "must be one of " + fe.Param()
	case "calendar_date":
		return "must be a date (YYYY-MM-DD)"
	}
	return "is invalid"
}

// classify maps store errors onto the service taxonomy
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict),
		errors.Is(err, ErrValidation), errors.Is(err, ErrTransient):
		return err
	case errors.Is(err, repository.ErrHostNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, repository.ErrHostExists), errors.Is(err, repository.ErrOrphanDetail):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

func fmtNotFound(what, key string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, what, key)
}
