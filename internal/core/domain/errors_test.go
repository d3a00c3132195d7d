package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Messages tests the message of every sentinel
func TestErrors_Messages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrDuplicateKey", ErrDuplicateKey, "duplicate key"},
		{"ErrInvalidConfiguration", ErrInvalidConfiguration, "invalid configuration"},
		{"ErrMalformedRecord", ErrMalformedRecord, "malformed record"},
		{"ErrInvalidInput", ErrInvalidInput, "invalid input"},
		{"ErrNotImplemented", ErrNotImplemented, "not implemented"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.msg, tt.err.Error())
		})
	}
}

// TestErrors_Uniqueness tests that all errors are distinct
func TestErrors_Uniqueness(t *testing.T) {
	allErrors := []error{
		ErrNotFound,
		ErrDuplicateKey,
		ErrInvalidConfiguration,
		ErrMalformedRecord,
		ErrInvalidInput,
		ErrNotImplemented,
	}

	for i, err1 := range allErrors {
		for j, err2 := range allErrors {
			if i != j {
				assert.False(t, errors.Is(err1, err2),
					"Error %v should not match error %v", err1, err2)
			}
		}
	}
}

// TestErrors_WithWrapping tests error wrapping behaviour
func TestErrors_WithWrapping(t *testing.T) {
	wrapped := fmt.Errorf("create location loc_1: %w", ErrDuplicateKey)

	assert.True(t, errors.Is(wrapped, ErrDuplicateKey))
	assert.False(t, errors.Is(wrapped, ErrNotFound))
	assert.Contains(t, wrapped.Error(), "duplicate key")
}
