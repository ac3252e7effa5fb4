package grantkit

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrorSentinelMatching validates errors.Is against the sentinels.
func TestErrorSentinelMatching(t *testing.T) {
	err := NewError(ErrNotFound, "resource not found")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, ErrConflict))
}

// TestErrorMessage validates the message format.
func TestErrorMessage(t *testing.T) {
	err := NewError(ErrValidation, "invalid grant")
	assert.Equal(t, "grantkit: validation: invalid grant", err.Error())

	bare := &Error{Err: ErrForbidden}
	assert.Equal(t, "grantkit: forbidden", bare.Error())
}

// TestErrorContextBuilders validates the With* chain.
func TestErrorContextBuilders(t *testing.T) {
	err := NewError(ErrNotFound, "not found").
		WithResource("res-1").
		WithIdentity("id-1").
		WithAction(ActionWrite).
		WithKind("document")

	assert.Equal(t, "res-1", err.ResourceID)
	assert.Equal(t, "id-1", err.IdentityID)
	assert.Equal(t, ActionWrite, err.Action)
	assert.Equal(t, "document", err.Kind)
	assert.True(t, IsNotFound(err))
}

// TestErrorUnwrap validates Unwrap through wrapping layers.
func TestErrorUnwrap(t *testing.T) {
	inner := NewError(ErrConflict, "grant already exists")
	wrapped := fmt.Errorf("during grant: %w", inner)

	assert.True(t, IsConflict(wrapped))

	var e *Error
	assert.True(t, errors.As(wrapped, &e))
	assert.Equal(t, "grant already exists", e.Message)
}

// TestErrorIsHelpers validates the predicate helpers for each sentinel.
func TestErrorIsHelpers(t *testing.T) {
	cases := []struct {
		err   error
		check func(error) bool
	}{
		{NewError(ErrUnauthenticated, ""), IsUnauthenticated},
		{NewError(ErrForbidden, ""), IsForbidden},
		{NewError(ErrNotFound, ""), IsNotFound},
		{NewError(ErrConflict, ""), IsConflict},
		{NewError(ErrValidation, ""), IsValidation},
	}

	for _, tc := range cases {
		assert.True(t, tc.check(tc.err))
	}

	assert.False(t, IsNotFound(nil))
	assert.False(t, IsNotFound(errors.New("plain")))
	assert.False(t, IsForbidden(NewError(ErrNotFound, "")))
}
