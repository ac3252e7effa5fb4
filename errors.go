package grantkit

import (
	"errors"
	"fmt"
)

// Sentinel errors for grantkit operations.
//
// The taxonomy is deliberately coarse at the boundary: authorization
// denials and most unexpected failures inside authorization-sensitive paths
// surface as ErrForbidden, and failed writes surface as ErrNotFound
// ("object not updated/deleted"), so existence is never confirmed to an
// unauthorized caller through error shape alone.
var (
	// ErrUnauthenticated is returned when no acting identity is present
	// where one is required.
	ErrUnauthenticated = errors.New("grantkit: unauthenticated")

	// ErrForbidden is returned on authorization denial.
	ErrForbidden = errors.New("grantkit: forbidden")

	// ErrNotFound is returned for missing rows on read and for failed writes.
	ErrNotFound = errors.New("grantkit: not found")

	// ErrConflict is returned when a policy creation violates the unique
	// grant tuple. The caller should use Change instead.
	ErrConflict = errors.New("grantkit: conflict")

	// ErrValidation is returned for malformed input rejected before the
	// store is reached.
	ErrValidation = errors.New("grantkit: validation")

	// ErrDatabaseError is returned when a database operation fails outside
	// an authorization-sensitive path.
	ErrDatabaseError = errors.New("grantkit: database error")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err        error  // Underlying sentinel error
	Message    string // Additional context
	ResourceID string // Resource involved (if applicable)
	IdentityID string // Identity involved (if applicable)
	Action     Action // Action involved (if applicable)
	Kind       string // Entity kind involved (if applicable)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithResource adds the resource id to the error.
func (e *Error) WithResource(resourceID string) *Error {
	e.ResourceID = resourceID
	return e
}

// WithIdentity adds the identity id to the error.
func (e *Error) WithIdentity(identityID string) *Error {
	e.IdentityID = identityID
	return e
}

// WithAction adds the action to the error.
func (e *Error) WithAction(action Action) *Error {
	e.Action = action
	return e
}

// WithKind adds the entity kind to the error.
func (e *Error) WithKind(kind string) *Error {
	e.Kind = kind
	return e
}

// IsUnauthenticated checks if an error is an authentication error.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

// IsForbidden checks if an error is an authorization denial.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsNotFound checks if an error reports a missing row or a failed write.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if an error is a duplicate-grant conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsValidation checks if an error is a validation rejection.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
