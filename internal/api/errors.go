package api

import (
	"fmt"
	"time"
)

// RateLimitError signals HTTP 429 from the upstream API. RetryAfter carries
// the Retry-After header when present (0 if absent); callers treat it as a
// hint, not a hard constraint.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("coingecko rate limited (retry after %s)", e.RetryAfter)
	}
	return "coingecko rate limited"
}

// TransientError signals a connectivity failure or a 5xx response. Safe to
// retry later.
type TransientError struct {
	StatusCode int   // 0 for transport-level failures
	Err        error // Underlying cause, may be nil for bare 5xx
}

func (e *TransientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("coingecko transient error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("coingecko transient error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// ProtocolError signals a malformed or unexpected response (non-retryable
// 4xx, undecodable body, misaligned series arrays). Retrying will not help.
type ProtocolError struct {
	StatusCode int    // 0 when the failure is in the body, not the status
	Message    string // Human-readable cause
}

func (e *ProtocolError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("coingecko protocol error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("coingecko protocol error: %s", e.Message)
}
