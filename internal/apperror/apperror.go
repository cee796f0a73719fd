// Package apperror defines the domain error taxonomy shared by the service,
// repository and handler layers.
//
// Every error the application expects to recover from is an *AppError that
// wraps one of the sentinels below. Callers test for the category with
// errors.Is and pull out the human-readable message with errors.As:
//
//	var appErr *apperror.AppError
//	if errors.As(err, &appErr) && errors.Is(err, apperror.ErrForbidden) { ... }
//
// None of these are fatal: each one is handled within a single request and
// leaves persisted state unchanged.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrConflict           = errors.New("conflict")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type AppError struct {
	Err     error  // sentinel category
	Message string // Human-readable error message
	Field   string // Optional: form field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %v", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports that a unique value is already taken. Field names the
// offending column so forms can highlight it.
func Conflict(field, message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
		Field:   field,
	}
}

func DuplicateEmail(email string) *AppError {
	return Conflict("email", fmt.Sprintf("email %q is already registered", email))
}

func DuplicateUsername(username string) *AppError {
	return Conflict("username", fmt.Sprintf("username %q is already taken", username))
}

// Forbidden returns an AppError indicating the caller lacks permission.
// Page handlers map this to a redirect with a notice, JSON handlers to 403.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated is returned when an operation needs a principal and the
// request has none. HTTP maps it to a redirect to the login page.
func Unauthenticated() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: "authentication required",
	}
}

// InvalidCredentials deliberately does not say whether the email or the
// password was wrong.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "invalid email or password",
	}
}
