package rest

import "net/http"

// statusClass determines how a response status is handled.
type statusClass int

const (
	classSuccess statusClass = iota
	classAuth
	classRateLimited
	classRetryableStatus
	classAPIError
)

func (c statusClass) String() string {
	switch c {
	case classSuccess:
		return "success"
	case classAuth:
		return "auth"
	case classRateLimited:
		return "rate_limited"
	case classRetryableStatus:
		return "retryable_status"
	default:
		return "api_error"
	}
}

// classifyStatus checks Auth, then RateLimited, then retryable statuses,
// then falls back to a generic API error.
func classifyStatus(status int) statusClass {
	switch {
	case status >= 200 && status < 300:
		return classSuccess
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return classAuth
	case status == http.StatusTooManyRequests:
		return classRateLimited
	case status == http.StatusRequestTimeout || (status >= 500 && status < 600):
		return classRetryableStatus
	default:
		return classAPIError
	}
}
