package services

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrInvalidState     = errors.New("invalid state")
	ErrAuth             = errors.New("authentication failed")
	// ErrTransientStore marks persistence failures. Callers may retry these.
	ErrTransientStore = errors.New("store unavailable")
	ErrRateLimited    = errors.New("rate limited")
)

// Wire kinds carried by error events.
const (
	KindValidation       = "validation"
	KindPermissionDenied = "permission_denied"
	KindNotFound         = "not_found"
	KindInvalidState     = "invalid_state"
	KindAuth             = "auth"
	KindTransientStore   = "transient_store"
	KindRateLimited      = "rate_limited"
	KindInternal         = "internal"
)

// KindOf maps an error to its wire kind.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrTransientStore):
		return KindTransientStore
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	default:
		return KindInternal
	}
}

// Retryable reports whether the caller may retry the failed operation.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransientStore)
}

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func transient(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransientStore, op, err)
}
