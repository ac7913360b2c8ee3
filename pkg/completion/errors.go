package completion

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRateLimited is returned when the provider throttles the request.
	ErrRateLimited = errors.New("provider rate limited")
	// ErrUnauthorized is returned when the provider rejects the credential.
	ErrUnauthorized = errors.New("provider rejected credentials")
	// ErrProvider is wrapped by every ProviderError.
	ErrProvider = errors.New("provider error")
)

// ProviderError is any provider or transport failure that is neither
// throttling nor an authentication problem. StatusCode is zero when no
// HTTP response was received.
type ProviderError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider error: status %d: %s", e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("provider error: %s: %v", e.Message, e.Err)
	}
	return "provider error: " + e.Message
}

// Unwrap lets errors.Is match both ErrProvider and the underlying cause.
func (e *ProviderError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrProvider, e.Err}
	}
	return []error{ErrProvider}
}

// classifyStatus maps a non-2xx provider status to an error.
func classifyStatus(code int, body []byte) error {
	switch code {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	}
	msg := string(body)
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return &ProviderError{StatusCode: code, Message: msg}
}

// Outcome returns a short label for err, used in metrics and usage records.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	default:
		return "provider_error"
	}
}
