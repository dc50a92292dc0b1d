// Package apperror maps failures to user-visible categories, exit codes and
// the JSON error envelope written to stderr.
package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/vietddude/ddq/internal/infra/rest"
)

// Category is a user-visible failure class.
type Category string

const (
	CategoryUsage     Category = "usage"
	CategoryAuth      Category = "auth"
	CategoryRateLimit Category = "rate_limit"
	CategoryUpstream  Category = "upstream"
	CategoryAPI       Category = "api"
	CategoryInternal  Category = "internal"
)

var exitCodes = map[Category]int{
	CategoryInternal:  1,
	CategoryUsage:     2,
	CategoryAuth:      3,
	CategoryRateLimit: 4,
	CategoryUpstream:  5,
	CategoryAPI:       6,
}

// kindCategories covers every rest.Kind.
var kindCategories = map[rest.Kind]Category{
	rest.KindInvalidRequest: CategoryUsage,
	rest.KindAuth:           CategoryAuth,
	rest.KindRateLimited:    CategoryRateLimit,
	rest.KindRetryable:      CategoryUpstream,
	rest.KindAPIError:       CategoryAPI,
}

// AppError is a classified failure ready to be presented.
type AppError struct {
	Category Category
	Status   *int
	Message  string

	// RetryAfterMS is only meaningful for CategoryRateLimit.
	RetryAfterMS *uint64

	Err error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code for the category.
func (e *AppError) ExitCode() int {
	if code, ok := exitCodes[e.Category]; ok {
		return code
	}
	return exitCodes[CategoryInternal]
}

// Retryable reports whether the caller may retry. Only upstream failures are.
func (e *AppError) Retryable() bool {
	return e.Category == CategoryUpstream
}

// Usage builds a usage error.
func Usage(format string, args ...any) *AppError {
	return &AppError{Category: CategoryUsage, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps a local failure unrelated to the request.
func Internal(err error) *AppError {
	return &AppError{Category: CategoryInternal, Message: err.Error(), Err: err}
}

// From classifies any error. *AppError passes through, *rest.Error is mapped
// by kind, anything else is internal.
func From(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var restErr *rest.Error
	if errors.As(err, &restErr) {
		return fromRest(restErr)
	}

	return Internal(err)
}

func fromRest(e *rest.Error) *AppError {
	category, ok := kindCategories[e.Kind]
	if !ok {
		return Internal(e)
	}

	out := &AppError{Category: category, Message: e.Message, Err: e}
	if e.Status != 0 {
		status := e.Status
		out.Status = &status
	}
	if e.RetryAfter != nil {
		ms := uint64(e.RetryAfter.Milliseconds())
		out.RetryAfterMS = &ms
	}
	return out
}

type envelope struct {
	Error any `json:"error"`
}

type plainBody struct {
	Category  Category `json:"category"`
	ExitCode  int      `json:"exit_code"`
	Retryable bool     `json:"retryable"`
	Message   string   `json:"message"`
}

type statusBody struct {
	Category  Category `json:"category"`
	ExitCode  int      `json:"exit_code"`
	Status    *int     `json:"status"`
	Retryable bool     `json:"retryable"`
	Message   string   `json:"message"`
}

type rateLimitBody struct {
	Category     Category `json:"category"`
	ExitCode     int      `json:"exit_code"`
	Status       int      `json:"status"`
	Retryable    bool     `json:"retryable"`
	RetryAfterMS *uint64  `json:"retry_after_ms"`
	Message      string   `json:"message"`
}

// MarshalJSON renders the {"error": {...}} envelope. Usage and internal
// errors carry no status; rate-limit errors always report 429 and a
// retry_after_ms that is null when the hint was absent.
func (e *AppError) MarshalJSON() ([]byte, error) {
	switch e.Category {
	case CategoryUsage, CategoryInternal:
		return json.Marshal(envelope{Error: plainBody{
			Category:  e.Category,
			ExitCode:  e.ExitCode(),
			Retryable: e.Retryable(),
			Message:   e.Message,
		}})
	case CategoryRateLimit:
		return json.Marshal(envelope{Error: rateLimitBody{
			Category:     e.Category,
			ExitCode:     e.ExitCode(),
			Status:       http.StatusTooManyRequests,
			Retryable:    e.Retryable(),
			RetryAfterMS: e.RetryAfterMS,
			Message:      e.Message,
		}})
	default:
		return json.Marshal(envelope{Error: statusBody{
			Category:  e.Category,
			ExitCode:  e.ExitCode(),
			Status:    e.Status,
			Retryable: e.Retryable(),
			Message:   e.Message,
		}})
	}
}
