package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vietddude/ddq/internal/infra/metrics"
)

// DefaultTimeout bounds a single attempt.
const DefaultTimeout = 30 * time.Second

// invalidMethodLabel replaces methods that fail validation in metric labels.
const invalidMethodLabel = "invalid"

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Executor performs logical requests with retries. It is safe to reuse but
// keeps no state between requests.
type Executor struct {
	baseURL string
	creds   Credentials
	policy  RetryPolicy
	timeout time.Duration

	client Doer
	sleep  Sleeper
	logger *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithHTTPClient replaces the transport.
func WithHTTPClient(client Doer) Option {
	return func(e *Executor) { e.client = client }
}

// WithTimeout sets the per-attempt timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

// WithSleeper replaces the backoff sleep.
func WithSleeper(s Sleeper) Option {
	return func(e *Executor) { e.sleep = s }
}

// WithLogger sets the logger used for attempt and retry records.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// NewExecutor creates an Executor for baseURL, e.g. "https://api.datadoghq.com".
// The policy is expected to be validated by the caller.
func NewExecutor(baseURL string, creds Credentials, policy RetryPolicy, opts ...Option) *Executor {
	e := &Executor{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		policy:  policy,
		timeout: DefaultTimeout,
		sleep:   sleepContext,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.client == nil {
		e.client = NewHTTPClient(e.timeout)
	}
	return e
}

// NewHTTPClient returns the default transport. The client timeout matches
// the per-attempt timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Do executes req. On failure the returned error is always a *Error.
func (e *Executor) Do(ctx context.Context, req Request) (any, error) {
	start := time.Now()

	result, rerr := e.execute(ctx, req)

	outcome := "success"
	if rerr != nil {
		outcome = rerr.Kind.String()
	}
	// Label values must be valid UTF-8.
	method := req.Method
	if !validMethod(method) {
		method = invalidMethodLabel
	}
	metrics.RequestsTotal.WithLabelValues(method, outcome).Inc()
	metrics.RequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	if rerr != nil {
		return nil, rerr
	}
	return result, nil
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (e *Executor) execute(ctx context.Context, req Request) (any, *Error) {
	if !validMethod(req.Method) {
		return nil, InvalidRequestf("invalid HTTP method %q", req.Method)
	}

	target, rerr := e.resolveURL(req.Path, req.Query)
	if rerr != nil {
		return nil, rerr
	}

	var payload []byte
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			rerr := InvalidRequestf("encode request body: %v", err)
			rerr.Err = err
			return nil, rerr
		}
		payload = data
	}

	log := e.logger.With("method", req.Method, "path", req.Path)

	var attempt uint
	for {
		log.Debug("Sending request", "attempt", attempt+1)

		resp, err := e.send(ctx, req.Method, target, payload)
		if err != nil {
			metrics.AttemptsTotal.WithLabelValues(req.Method, metrics.StatusClass(0)).Inc()

			if ctx.Err() != nil {
				return nil, e.cancelled(attempt, ctx.Err())
			}
			if attempt < e.policy.MaxRetries {
				if werr := e.backoff(ctx, log, "transport", 0, attempt, e.policy.Backoff(attempt)); werr != nil {
					return nil, e.cancelled(attempt, werr)
				}
				attempt++
				continue
			}
			return nil, &Error{
				Kind:     KindRetryable,
				Message:  fmt.Sprintf("request failed after %d attempts: %s", attempt+1, e.creds.redact(err.Error())),
				Attempts: int(attempt) + 1,
				Err:      err,
			}
		}

		metrics.AttemptsTotal.WithLabelValues(req.Method, metrics.StatusClass(resp.status)).Inc()
		class := classifyStatus(resp.status)
		log.Debug("Received response", "attempt", attempt+1, "status", resp.status, "class", class, "bytes", len(resp.body))

		switch class {
		case classSuccess:
			if attempt > 0 {
				log.Info("Request succeeded after retries", "attempts", attempt+1)
			}
			return decodeBody(resp.body), nil

		case classAuth:
			return nil, &Error{
				Kind:     KindAuth,
				Status:   resp.status,
				Message:  e.describe(resp),
				Attempts: int(attempt) + 1,
			}

		case classRateLimited:
			retryAfter, hasRetryAfter := parseRetryAfter(resp.header.Get("Retry-After"))
			if e.policy.RetryOnRateLimit && attempt < e.policy.MaxRetries {
				delay := e.policy.Backoff(attempt)
				if hasRetryAfter {
					delay = retryAfter
				}
				if werr := e.backoff(ctx, log, "rate_limit", resp.status, attempt, delay); werr != nil {
					return nil, e.cancelled(attempt, werr)
				}
				attempt++
				continue
			}
			rerr := &Error{
				Kind:     KindRateLimited,
				Status:   resp.status,
				Message:  e.describe(resp),
				Attempts: int(attempt) + 1,
			}
			if hasRetryAfter {
				rerr.RetryAfter = &retryAfter
			}
			return nil, rerr

		case classRetryableStatus:
			if attempt < e.policy.MaxRetries {
				if werr := e.backoff(ctx, log, "status", resp.status, attempt, e.policy.Backoff(attempt)); werr != nil {
					return nil, e.cancelled(attempt, werr)
				}
				attempt++
				continue
			}
			return nil, &Error{
				Kind:     KindRetryable,
				Status:   resp.status,
				Message:  fmt.Sprintf("API returned %d after %d attempts: %s", resp.status, attempt+1, e.describe(resp)),
				Attempts: int(attempt) + 1,
			}

		default:
			return nil, &Error{
				Kind:     KindAPIError,
				Status:   resp.status,
				Message:  e.describe(resp),
				Attempts: int(attempt) + 1,
			}
		}
	}
}

// send performs one attempt under its own timeout and reads the full body.
func (e *Executor) send(ctx context.Context, method, target string, payload []byte) (*response, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	e.creds.apply(httpReq.Header)
	httpReq.Header.Set("Content-Type", contentTypeJSON)
	httpReq.Header.Set("Accept", contentTypeJSON)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &response{
		status: resp.StatusCode,
		header: resp.Header,
		body:   data,
	}, nil
}

func (e *Executor) backoff(ctx context.Context, log *slog.Logger, reason string, status int, attempt uint, delay time.Duration) error {
	metrics.RetriesTotal.WithLabelValues(reason).Inc()
	metrics.BackoffSeconds.Add(delay.Seconds())

	log.Info("Retrying request",
		"reason", reason,
		"status", status,
		"attempt", attempt+1,
		"max_retries", e.policy.MaxRetries,
		"delay", delay,
	)
	return e.sleep(ctx, delay)
}

func (e *Executor) cancelled(attempt uint, err error) *Error {
	return &Error{
		Kind:     KindRetryable,
		Message:  fmt.Sprintf("request cancelled after %d attempts: %v", attempt+1, err),
		Attempts: int(attempt) + 1,
		Err:      err,
	}
}

// describe renders a response body for an error message.
func (e *Executor) describe(r *response) string {
	text := strings.TrimSpace(string(r.body))
	if text == "" {
		text = fmt.Sprintf("HTTP %d %s", r.status, http.StatusText(r.status))
	}
	// Redact before truncating so a cut can't leave half a key behind.
	return truncateBody(e.creds.redact(text))
}

func (e *Executor) resolveURL(path string, query []Param) (string, *Error) {
	raw := path
	if !isAbsoluteURL(path) {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		raw = e.baseURL + path
	}

	u, err := url.Parse(raw)
	if err != nil {
		rerr := InvalidRequestf("invalid URL: %s", e.creds.redact(err.Error()))
		rerr.Err = err
		return "", rerr
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", InvalidRequestf("invalid URL %q: expected an absolute http(s) URL", e.creds.redact(raw))
	}

	if len(query) > 0 {
		encoded := encodeQuery(query)
		if u.RawQuery != "" {
			u.RawQuery += "&" + encoded
		} else {
			u.RawQuery = encoded
		}
	}
	return u.String(), nil
}

func isAbsoluteURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// encodeQuery form-encodes params without reordering them, unlike url.Values.
func encodeQuery(params []Param) string {
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// validMethod reports whether m is a non-empty HTTP token.
func validMethod(m string) bool {
	if m == "" {
		return false
	}
	for i := 0; i < len(m); i++ {
		c := m[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0:
		default:
			return false
		}
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
