package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("task", 42),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("title", "title is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "DuplicateEmail wraps ErrConflict",
			err:       DuplicateEmail("a@x.com"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "DuplicateUsername wraps ErrConflict",
			err:       DuplicateUsername("alice"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Forbidden wraps ErrForbidden",
			err:       Forbidden("not yours"),
			target:    ErrForbidden,
			wantMatch: true,
		},
		{
			name:      "Unauthenticated wraps ErrUnauthenticated",
			err:       Unauthenticated(),
			target:    ErrUnauthenticated,
			wantMatch: true,
		},
		{
			name:      "InvalidCredentials wraps ErrInvalidCredentials",
			err:       InvalidCredentials(),
			target:    ErrInvalidCredentials,
			wantMatch: true,
		},
		{
			name:      "wrapped with fmt.Errorf still matches",
			err:       fmt.Errorf("editing task: %w", Forbidden("nope")),
			target:    ErrForbidden,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("task", 1),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "Forbidden does NOT match ErrNotFound",
			err:       Forbidden("nope"),
			target:    ErrNotFound,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{"NotFound message includes resource and id", NotFound("task", 7), "task not found with id 7"},
		{"ValidationFailed uses custom message", ValidationFailed("title", "title is required"), "title is required"},
		{"DuplicateEmail quotes the address", DuplicateEmail("a@x.com"), `email "a@x.com" is already registered`},
		{"DuplicateUsername quotes the name", DuplicateUsername("alice"), `username "alice" is already taken`},
		{"InvalidCredentials is generic", InvalidCredentials(), "invalid email or password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("task", 1)
	if unwrapped := err.Unwrap(); unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}

func TestFieldIsSet(t *testing.T) {
	tests := []struct {
		err       *AppError
		wantField string
	}{
		{ValidationFailed("due_date", "bad date"), "due_date"},
		{DuplicateEmail("a@x.com"), "email"},
		{DuplicateUsername("alice"), "username"},
		{Forbidden("nope"), ""},
	}
	for _, tt := range tests {
		if tt.err.Field != tt.wantField {
			t.Errorf("%v: Field = %q, want %q", tt.err, tt.err.Field, tt.wantField)
		}
	}
}

func TestErrorsAsExtractsMessage(t *testing.T) {
	err := fmt.Errorf("service: %w", ValidationFailed("title", "title is required"))

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatal("errors.As should find the *AppError in the chain")
	}
	if appErr.Message != "title is required" || appErr.Field != "title" {
		t.Errorf("got %+v", appErr)
	}
}
