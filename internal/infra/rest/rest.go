// Package rest executes logical requests against the Datadog REST API.
//
// This package contains:
//   - Request: an immutable method/path/query/body description
//   - Executor: the retry loop, transport invocation and result decoding
//   - RetryPolicy: bounded exponential backoff with rate-limit handling
//   - Error: the closed error taxonomy every failed request resolves to
package rest

import (
	"log/slog"
	"net/http"
	"strings"
)

// Header names and values sent on every attempt.
const (
	APIKeyHeader = "DD-API-KEY"
	AppKeyHeader = "DD-APPLICATION-KEY"

	contentTypeJSON = "application/json"
)

// Param is a single query parameter. Params are sent in slice order.
type Param struct {
	Key   string
	Value string
}

// Request describes one logical API call.
type Request struct {
	// Method is the HTTP method, e.g. "GET".
	Method string

	// Path is either an absolute http(s) URL or a path joined onto the base URL.
	Path string

	// Query parameters, appended in order.
	Query []Param

	// Body is serialized as JSON when non-nil.
	Body any
}

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Credentials hold the API and application keys.
type Credentials struct {
	APIKey string
	AppKey string
}

// String never reveals the keys.
func (c Credentials) String() string {
	return "Credentials{APIKey:" + mask(c.APIKey) + ", AppKey:" + mask(c.AppKey) + "}"
}

// LogValue implements slog.LogValuer so credentials can't leak into logs.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("api_key", mask(c.APIKey)),
		slog.String("app_key", mask(c.AppKey)),
	)
}

// minRedactLength is the shortest key redact will scrub. Datadog API keys
// are 32 characters and application keys 40; shorter values would match
// ordinary text.
const minRedactLength = 8

// redact replaces every occurrence of a key in s.
func (c Credentials) redact(s string) string {
	for _, secret := range []string{c.APIKey, c.AppKey} {
		if len(secret) < minRedactLength {
			continue
		}
		s = strings.ReplaceAll(s, secret, "[redacted]")
	}
	return s
}

func (c Credentials) apply(h http.Header) {
	h.Set(APIKeyHeader, c.APIKey)
	h.Set(AppKeyHeader, c.AppKey)
}

func mask(s string) string {
	if s == "" {
		return "<unset>"
	}
	return "****"
}
