package tuner

import (
	"errors"
	"fmt"

	"github.com/pario-ai/tonal/pkg/completion"
)

// ErrValidation is wrapped by every ValidationError.
var ErrValidation = errors.New("validation error")

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Reason
	}
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Failure kinds reported by Kind.
const (
	KindValidation   = "validation"
	KindRateLimited  = "rate_limited"
	KindUnauthorized = "unauthorized"
	KindProvider     = "provider_error"
	KindCanceled     = "canceled"
)

// Kind classifies an error returned by Adjust.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, completion.ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, completion.ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, completion.ErrProvider):
		return KindProvider
	case errors.Is(err, errCanceled):
		return KindCanceled
	default:
		return KindProvider
	}
}

var errCanceled = errors.New("request canceled")
