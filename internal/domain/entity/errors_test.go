package entity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		message  string
		expected string
	}{
		{
			name:     "missing external email",
			field:    "recipientEmail",
			message:  "is required for external recipients",
			expected: "validation error on field 'recipientEmail': is required for external recipients",
		},
		{
			name:     "empty field name",
			field:    "",
			message:  "test message",
			expected: "validation error on field '': test message",
		},
		{
			name:     "empty message",
			field:    "title",
			message:  "",
			expected: "validation error on field 'title': ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &ValidationError{
				Field:   tt.field,
				Message: tt.message,
			}

			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestValidationError_IsValidationFailed(t *testing.T) {
	err := fmt.Errorf("schedule: %w", &ValidationError{Field: "recipientName", Message: "is required"})

	assert.True(t, errors.Is(err, ErrValidationFailed))
	assert.False(t, errors.Is(err, ErrNotFound))

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, "recipientName", ve.Field)
}

func TestNotFoundError(t *testing.T) {
	err := fmt.Errorf("resolve: %w", &NotFoundError{Kind: "STUDENT", ID: "S404"})

	assert.Equal(t, "resolve: STUDENT not found: S404", err.Error())
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidationFailed))
}

func TestSentinelErrors(t *testing.T) {
	assert.Equal(t, "entity not found", ErrNotFound.Error())
	assert.Equal(t, "invalid input", ErrInvalidInput.Error())
	assert.Equal(t, "validation failed", ErrValidationFailed.Error())
}
