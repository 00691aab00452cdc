// Package service provides business logic for the application.
package service

import (
	"errors"
	"fmt"

	"github.com/hhaamed74/promanager-api/internal/repository"
)

// ErrValidation is wrapped by every input validation error, so callers can
// map the whole family to a single status code.
var ErrValidation = errors.New("validation failed")

// Validation errors.
var (
	ErrNameRequired        = invalid("name is required")
	ErrNameTooLong         = invalid(fmt.Sprintf("name must be at most %d characters", maxNameLength))
	ErrInvalidEmail        = invalid("email is invalid")
	ErrPasswordTooShort    = invalid(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	ErrPasswordMismatch    = invalid("passwords do not match")
	ErrTitleRequired       = invalid("title is required")
	ErrTitleTooLong        = invalid("title must be at most 100 characters")
	ErrDescriptionRequired = invalid("description is required")
	ErrDeadlineRequired    = invalid("deadline is required")
	ErrInvalidStatus       = invalid("status must be one of pending, in-progress, completed")
	ErrInvalidPriority     = invalid("priority must be one of low, medium, high")
	ErrInvalidCategory     = invalid("category must be one of programming, design, marketing, management, other")
)

// Domain errors.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrCannotModifySelf   = errors.New("admins cannot disable or delete their own account")

	// Shared with the repository so errors.Is works across layers.
	ErrEmailExists     = repository.ErrEmailExists
	ErrAccountNotFound = repository.ErrAccountNotFound
	ErrProjectNotFound = repository.ErrProjectNotFound
)

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
