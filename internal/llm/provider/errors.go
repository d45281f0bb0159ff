package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrAuthentication reports a missing or rejected credential. Not worth
// retrying until the key changes.
var ErrAuthentication = errors.New("provider: authentication failed")

// RateLimitError reports throttling by the completion service. RetryAfter
// carries the service's hint when it sent one; the core itself never
// retries.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return "provider: rate limited: " + e.Message
	}
	return "provider: rate limited"
}

// ServiceUnavailableError reports that the completion service could not be
// reached or did not answer in time. The caller may retry manually.
type ServiceUnavailableError struct {
	Err error
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("provider: service unavailable: %v", e.Err)
}

func (e *ServiceUnavailableError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP error response to the typed error surface.
// Statuses without a special meaning pass the original error through.
func classifyStatus(statusCode int, message string, header http.Header, err error) error {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrAuthentication, message)
		}
		return fmt.Errorf("%w: status %d", ErrAuthentication, statusCode)
	case statusCode == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: retryAfterHint(header), Message: message}
	case statusCode >= http.StatusInternalServerError:
		return &ServiceUnavailableError{Err: err}
	default:
		return err
	}
}

// classifyTransport handles errors without an HTTP response: the service is
// unreachable or the call timed out. Caller-initiated cancellation is not a
// service failure and passes through unchanged.
func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &ServiceUnavailableError{Err: err}
}

func retryAfterHint(header http.Header) time.Duration {
	raw := header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
