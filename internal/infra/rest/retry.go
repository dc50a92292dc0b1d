package rest

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// maxBackoffExponent caps 2^attempt so the multiplication can't overflow.
const maxBackoffExponent = 16

// RetryPolicy defines retry behavior for a single logical request.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first try.
	MaxRetries uint

	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	// RetryOnRateLimit enables retrying HTTP 429 responses.
	RetryOnRateLimit bool
}

// DefaultRetryPolicy mirrors the CLI defaults.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:       3,
	BaseBackoff:      250 * time.Millisecond,
	MaxBackoff:       5 * time.Second,
	RetryOnRateLimit: true,
}

// Validate checks 0 < BaseBackoff <= MaxBackoff.
func (p RetryPolicy) Validate() error {
	if p.BaseBackoff <= 0 {
		return errors.New("retry backoff must be greater than 0")
	}
	if p.MaxBackoff < p.BaseBackoff {
		return errors.New("retry max backoff must be greater than or equal to retry backoff")
	}
	return nil
}

// Backoff returns min(BaseBackoff * 2^attempt, MaxBackoff) for a 0-based attempt.
func (p RetryPolicy) Backoff(attempt uint) time.Duration {
	exp := attempt
	if exp > maxBackoffExponent {
		exp = maxBackoffExponent
	}
	factor := time.Duration(1) << exp
	if p.BaseBackoff > p.MaxBackoff/factor {
		return p.MaxBackoff
	}
	return p.BaseBackoff * factor
}

// parseRetryAfter reads a Retry-After value as whole seconds.
// HTTP-date values and garbage are ignored.
func parseRetryAfter(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	secs, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}
