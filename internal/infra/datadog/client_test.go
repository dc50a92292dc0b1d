package datadog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/ddq/internal/infra/rest"
)

// recordingExecutor captures requests instead of sending them.
type recordingExecutor struct {
	requests []rest.Request
}

func (r *recordingExecutor) Do(_ context.Context, req rest.Request) (any, error) {
	r.requests = append(r.requests, req)
	return map[string]any{}, nil
}

func TestQueryLogs_Body(t *testing.T) {
	exec := &recordingExecutor{}
	client := NewClient(exec)

	_, err := client.QueryLogs(context.Background(), LogsQuery{
		Query:  "service:web",
		From:   "now-15m",
		To:     "now",
		Limit:  25,
		Sort:   "ASC",
		Cursor: "abc",
	})
	require.NoError(t, err)
	require.Len(t, exec.requests, 1)

	req := exec.requests[0]
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, LogsSearchPath, req.Path)
	assert.Empty(t, req.Query)

	data, err := json.Marshal(req.Body)
	require.NoError(t, err)
	assert.Equal(t,
		`{"filter":{"query":"service:web","from":"now-15m","to":"now"},"sort":"timestamp","page":{"limit":25,"cursor":"abc"}}`,
		string(data))
}

func TestQueryLogs_NoCursor(t *testing.T) {
	exec := &recordingExecutor{}
	_, err := NewClient(exec).QueryLogs(context.Background(), LogsQuery{Query: "*", From: "now-1h", To: "now", Limit: 50, Sort: "desc"})
	require.NoError(t, err)

	data, err := json.Marshal(exec.requests[0].Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"filter":{"query":"*","from":"now-1h","to":"now"},"sort":"-timestamp","page":{"limit":50}}`, string(data))
}

func TestQueryMetrics_Params(t *testing.T) {
	exec := &recordingExecutor{}
	_, err := NewClient(exec).QueryMetrics(context.Background(), "avg:system.cpu.user{*}", 1700000000, 1700000900)
	require.NoError(t, err)

	req := exec.requests[0]
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, MetricsQueryPath, req.Path)
	assert.Equal(t, []rest.Param{
		{Key: "query", Value: "avg:system.cpu.user{*}"},
		{Key: "from", Value: "1700000000"},
		{Key: "to", Value: "1700000900"},
	}, req.Query)
	assert.Nil(t, req.Body)
}

func TestQueryEvents_Params(t *testing.T) {
	exec := &recordingExecutor{}
	client := NewClient(exec)

	_, err := client.QueryEvents(context.Background(), EventsQuery{From: "now-15m", To: "now", Limit: 10, Sort: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []rest.Param{
		{Key: "filter[from]", Value: "now-15m"},
		{Key: "filter[to]", Value: "now"},
		{Key: "page[limit]", Value: "10"},
		{Key: "sort", Value: "timestamp"},
	}, exec.requests[0].Query)

	_, err = client.QueryEvents(context.Background(), EventsQuery{Query: "source:deploy", From: "a", To: "b", Limit: 5, Sort: "desc"})
	require.NoError(t, err)
	q := exec.requests[1].Query
	assert.Equal(t, rest.Param{Key: "sort", Value: "-timestamp"}, q[3])
	assert.Equal(t, rest.Param{Key: "filter[query]", Value: "source:deploy"}, q[4])
}

func TestInvalidSortNeverReachesTransport(t *testing.T) {
	var calls int
	doer := doerFunc(func(*http.Request) (*http.Response, error) {
		calls++
		return nil, errors.New("unreachable")
	})
	exec := rest.NewExecutor("https://api.example.test", rest.Credentials{APIKey: "k", AppKey: "a"}, rest.DefaultRetryPolicy,
		rest.WithHTTPClient(doer),
		rest.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	client := NewClient(exec)

	_, err := client.QueryLogs(context.Background(), LogsQuery{Sort: "sideways"})
	var rerr *rest.Error
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, rest.KindInvalidRequest, rerr.Kind)
	assert.Contains(t, rerr.Message, "logs")

	_, err = client.QueryEvents(context.Background(), EventsQuery{Sort: "sideways"})
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, rest.KindInvalidRequest, rerr.Kind)
	assert.Contains(t, rerr.Message, "events")

	assert.Zero(t, calls)
}

func TestRaw(t *testing.T) {
	exec := &recordingExecutor{}
	client := NewClient(exec)

	_, err := client.Raw(context.Background(), "put", "/api/v1/monitor/1", nil, json.RawMessage(`{"name":"x"}`))
	require.NoError(t, err)
	req := exec.requests[0]
	assert.Equal(t, "PUT", req.Method)
	assert.Nil(t, req.Query)
	assert.Equal(t, json.RawMessage(`{"name":"x"}`), req.Body)

	_, err = client.Raw(context.Background(), "GET", "/api/v1/validate", []rest.Param{{Key: "a", Value: "1"}}, nil)
	require.NoError(t, err)
	req = exec.requests[1]
	assert.Nil(t, req.Body)
	assert.Len(t, req.Query, 1)
}

func TestRaw_EndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DELETE", r.Method)
		assert.Equal(t, "/api/v1/dashboard/abc", r.URL.Path)
		assert.Equal(t, int64(0), r.ContentLength)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	exec := rest.NewExecutor(server.URL, rest.Credentials{APIKey: "k", AppKey: "a"}, rest.DefaultRetryPolicy,
		rest.WithTimeout(5*time.Second),
		rest.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	result, err := NewClient(exec).Raw(context.Background(), "delete", "api/v1/dashboard/abc", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, result)
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}
