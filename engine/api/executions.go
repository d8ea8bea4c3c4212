package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/n8n-cli/n8nctl/engine/core"
)

// Execution is one workflow run as the server reports it.
type Execution struct {
	ID         string         `json:"id"`
	WorkflowID string         `json:"workflowId"`
	Status     string         `json:"status,omitempty"`
	Mode       string         `json:"mode,omitempty"`
	Finished   bool           `json:"finished"`
	RetryOf    string         `json:"retryOf,omitempty"`
	StartedAt  *time.Time     `json:"startedAt,omitempty"`
	StoppedAt  *time.Time     `json:"stoppedAt,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// ExecutionList is one page of executions.
type ExecutionList struct {
	Data       []*Execution `json:"data"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

// ListExecutionsOptions narrow a listing.
type ListExecutionsOptions struct {
	WorkflowID  string
	Status      string
	Limit       int
	Cursor      string
	IncludeData bool
}

func (o ListExecutionsOptions) query() string {
	q := url.Values{}
	if o.WorkflowID != "" {
		q.Set("workflowId", o.WorkflowID)
	}
	if o.Status != "" {
		q.Set("status", o.Status)
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Cursor != "" {
		q.Set("cursor", o.Cursor)
	}
	if o.IncludeData {
		q.Set("includeData", "true")
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// ListExecutions fetches one page of executions. Requests that include
// run data get the longer data timeout.
func (c *Client) ListExecutions(ctx context.Context, opts ListExecutionsOptions) (*ExecutionList, error) {
	timeout := TimeoutList
	if opts.IncludeData {
		timeout = TimeoutExecutionData
	}
	var out ExecutionList
	path := apiPrefix + "/executions" + opts.query()
	if err := c.do(ctx, http.MethodGet, path, nil, &out, timeout); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetExecution fetches a single execution, optionally with its run data.
func (c *Client) GetExecution(ctx context.Context, id string, includeData bool) (*Execution, error) {
	if id == "" {
		return nil, core.NewKindError(core.KindValidationFailed, errors.New("execution id is empty"), "MISSING_ID", "an execution id is required", nil)
	}
	timeout := TimeoutGet
	path := apiPrefix + "/executions/" + url.PathEscape(id)
	if includeData {
		path += "?includeData=true"
		timeout = TimeoutExecutionData
	}
	var out Execution
	if err := c.do(ctx, http.MethodGet, path, nil, &out, timeout); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteExecution removes an execution record.
func (c *Client) DeleteExecution(ctx context.Context, id string) error {
	if id == "" {
		return core.NewKindError(core.KindValidationFailed, errors.New("execution id is empty"), "MISSING_ID", "an execution id is required", nil)
	}
	return c.do(ctx, http.MethodDelete, apiPrefix+"/executions/"+url.PathEscape(id), nil, nil, TimeoutGet)
}

// RetryExecution re-runs a finished execution and returns the new run.
func (c *Client) RetryExecution(ctx context.Context, id string) (*Execution, error) {
	if id == "" {
		return nil, core.NewKindError(core.KindValidationFailed, errors.New("execution id is empty"), "MISSING_ID", "an execution id is required", nil)
	}
	var out Execution
	path := apiPrefix + "/executions/" + url.PathEscape(id) + "/retry"
	if err := c.do(ctx, http.MethodPost, path, nil, &out, TimeoutGet); err != nil {
		return nil, err
	}
	return &out, nil
}
