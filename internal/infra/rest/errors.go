package rest

import (
	"fmt"
	"time"
)

// Kind is the closed set of terminal failure classes.
type Kind int

const (
	// KindInvalidRequest means the request could not be built; nothing was sent.
	KindInvalidRequest Kind = iota + 1
	// KindAuth is a 401 or 403. Never retried.
	KindAuth
	// KindRateLimited is a 429 that was not (or no longer) retried.
	KindRateLimited
	// KindRetryable is a transport failure, 408 or 5xx left after the retry budget.
	KindRetryable
	// KindAPIError is any other non-2xx status.
	KindAPIError
)

// Kinds lists every Kind.
func Kinds() []Kind {
	return []Kind{KindInvalidRequest, KindAuth, KindRateLimited, KindRetryable, KindAPIError}
}

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindAuth:
		return "auth"
	case KindRateLimited:
		return "rate_limited"
	case KindRetryable:
		return "retryable"
	case KindAPIError:
		return "api_error"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the terminal failure of a logical request.
type Error struct {
	Kind Kind

	// Status is the HTTP status, zero when no response was received.
	Status int

	// Message is safe to show: bodies are truncated and credentials redacted.
	Message string

	// RetryAfter is the parsed Retry-After hint of a rate-limited response.
	RetryAfter *time.Duration

	// Attempts is the number of tries made, zero for invalid requests.
	Attempts int

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// InvalidRequestf builds a KindInvalidRequest error for a request that was never sent.
func InvalidRequestf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}
