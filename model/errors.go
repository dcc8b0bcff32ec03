package model

import (
	"errors"
	"fmt"
	"time"
)

// TransportError reports that the model endpoint could not be reached or
// failed server-side. It is retryable.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("model transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RateLimitError reports that the endpoint throttled the request. It is
// retryable after RetryAfter, when known.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("model rate limited (retry after %s): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("model rate limited: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// MalformedResponseError reports a response that cannot be interpreted. It is
// never retried.
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed model response: %s: %v", e.Reason, e.Err)
	}
	return "malformed model response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transport or rate-limit failure.
func IsRetryable(err error) bool {
	var transport *TransportError
	var rateLimit *RateLimitError
	return errors.As(err, &transport) || errors.As(err, &rateLimit)
}
