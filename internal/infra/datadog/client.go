// Package datadog builds the logical requests behind each ddq subcommand.
package datadog

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/vietddude/ddq/internal/infra/rest"
)

// Endpoint paths.
const (
	LogsSearchPath   = "/api/v2/logs/events/search"
	MetricsQueryPath = "/api/v1/query"
	EventsPath       = "/api/v2/events"
)

// Executor runs a logical request. *rest.Executor satisfies it.
type Executor interface {
	Do(ctx context.Context, req rest.Request) (any, error)
}

// Client translates subcommand inputs into requests.
type Client struct {
	exec Executor
}

// NewClient creates a Client on top of exec.
func NewClient(exec Executor) *Client {
	return &Client{exec: exec}
}

// LogsQuery holds the inputs of a logs search.
type LogsQuery struct {
	Query string
	From  string
	To    string
	Limit uint32
	Sort  string
	// Cursor continues a previous page; empty starts from the first page.
	Cursor string
}

// EventsQuery holds the inputs of an events search.
type EventsQuery struct {
	// Query is optional; empty sends no filter[query].
	Query string
	From  string
	To    string
	Limit uint32
	Sort  string
}

type logsSearchBody struct {
	Filter logsFilter `json:"filter"`
	Sort   string     `json:"sort"`
	Page   logsPage   `json:"page"`
}

type logsFilter struct {
	Query string `json:"query"`
	From  string `json:"from"`
	To    string `json:"to"`
}

type logsPage struct {
	Limit  uint32 `json:"limit"`
	Cursor string `json:"cursor,omitempty"`
}

// QueryLogs searches logs.
func (c *Client) QueryLogs(ctx context.Context, q LogsQuery) (any, error) {
	sort, err := sortParam(q.Sort, "logs")
	if err != nil {
		return nil, err
	}

	return c.exec.Do(ctx, rest.Request{
		Method: "POST",
		Path:   LogsSearchPath,
		Body: logsSearchBody{
			Filter: logsFilter{Query: q.Query, From: q.From, To: q.To},
			Sort:   sort,
			Page:   logsPage{Limit: q.Limit, Cursor: q.Cursor},
		},
	})
}

// QueryMetrics runs a timeseries query over [from, to] unix seconds.
func (c *Client) QueryMetrics(ctx context.Context, query string, from, to int64) (any, error) {
	return c.exec.Do(ctx, rest.Request{
		Method: "GET",
		Path:   MetricsQueryPath,
		Query: []rest.Param{
			{Key: "query", Value: query},
			{Key: "from", Value: strconv.FormatInt(from, 10)},
			{Key: "to", Value: strconv.FormatInt(to, 10)},
		},
	})
}

// QueryEvents lists events.
func (c *Client) QueryEvents(ctx context.Context, q EventsQuery) (any, error) {
	sort, err := sortParam(q.Sort, "events")
	if err != nil {
		return nil, err
	}

	params := []rest.Param{
		{Key: "filter[from]", Value: q.From},
		{Key: "filter[to]", Value: q.To},
		{Key: "page[limit]", Value: strconv.FormatUint(uint64(q.Limit), 10)},
		{Key: "sort", Value: sort},
	}
	if q.Query != "" {
		params = append(params, rest.Param{Key: "filter[query]", Value: q.Query})
	}

	return c.exec.Do(ctx, rest.Request{
		Method: "GET",
		Path:   EventsPath,
		Query:  params,
	})
}

// Raw sends an arbitrary request. The method is upper-cased; an empty body
// sends no payload.
func (c *Client) Raw(ctx context.Context, method, path string, params []rest.Param, body json.RawMessage) (any, error) {
	req := rest.Request{
		Method: strings.ToUpper(strings.TrimSpace(method)),
		Path:   path,
	}
	if len(params) > 0 {
		req.Query = params
	}
	if len(body) > 0 {
		req.Body = body
	}
	return c.exec.Do(ctx, req)
}

// sortParam maps asc/desc to the API's timestamp sort.
func sortParam(sort, what string) (string, error) {
	switch strings.ToLower(sort) {
	case "asc":
		return "timestamp", nil
	case "desc":
		return "-timestamp", nil
	default:
		return "", rest.InvalidRequestf("Invalid sort %q. Use `asc` or `desc` for %s queries.", sort, what)
	}
}
