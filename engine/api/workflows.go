package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/n8n-cli/n8nctl/engine/core"
	"github.com/n8n-cli/n8nctl/engine/workflow"
)

// WorkflowList is one page of workflows.
type WorkflowList struct {
	Data       []*workflow.Workflow `json:"data"`
	NextCursor string               `json:"nextCursor,omitempty"`
}

// ListWorkflowsOptions narrow a listing.
type ListWorkflowsOptions struct {
	Limit  int
	Cursor string
	Active *bool
	Name   string
	Tag    string
}

func (o ListWorkflowsOptions) query() string {
	q := url.Values{}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Cursor != "" {
		q.Set("cursor", o.Cursor)
	}
	if o.Active != nil {
		q.Set("active", strconv.FormatBool(*o.Active))
	}
	if o.Name != "" {
		q.Set("name", o.Name)
	}
	if o.Tag != "" {
		q.Set("tags", o.Tag)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// ListWorkflows fetches one page of workflows.
func (c *Client) ListWorkflows(ctx context.Context, opts ListWorkflowsOptions) (*WorkflowList, error) {
	var out WorkflowList
	path := apiPrefix + "/workflows" + opts.query()
	if err := c.do(ctx, http.MethodGet, path, nil, &out, TimeoutList); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetWorkflow fetches a single workflow by ID.
func (c *Client) GetWorkflow(ctx context.Context, id string) (*workflow.Workflow, error) {
	if id == "" {
		return nil, core.NewKindError(core.KindValidationFailed, errors.New("workflow id is empty"), "MISSING_ID", "a workflow id is required", nil)
	}
	var out workflow.Workflow
	path := apiPrefix + "/workflows/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, nil, &out, TimeoutGet); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateWorkflow creates a workflow and returns the server's copy.
func (c *Client) CreateWorkflow(ctx context.Context, wf *workflow.Workflow) (*workflow.Workflow, error) {
	if wf == nil {
		return nil, core.NewKindError(core.KindValidationFailed, errors.New("workflow is nil"), "MISSING_BODY", "a workflow document is required", nil)
	}
	var out workflow.Workflow
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/workflows", wf, &out, TimeoutGet); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateWorkflow replaces a workflow via PUT. Servers that do not accept
// PUT on the resource get a PATCH with the same body.
func (c *Client) UpdateWorkflow(ctx context.Context, id string, wf *workflow.Workflow) (*workflow.Workflow, error) {
	if id == "" {
		return nil, core.NewKindError(core.KindValidationFailed, errors.New("workflow id is empty"), "MISSING_ID", "a workflow id is required", nil)
	}
	if wf == nil {
		return nil, core.NewKindError(core.KindValidationFailed, errors.New("workflow is nil"), "MISSING_BODY", "a workflow document is required", nil)
	}
	var out workflow.Workflow
	path := apiPrefix + "/workflows/" + url.PathEscape(id)
	err := c.do(ctx, http.MethodPut, path, wf, &out, TimeoutGet)
	if err != nil && statusOf(err) == http.StatusMethodNotAllowed {
		err = c.do(ctx, http.MethodPatch, path, wf, &out, TimeoutGet)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteWorkflow removes a workflow by ID.
func (c *Client) DeleteWorkflow(ctx context.Context, id string) error {
	if id == "" {
		return core.NewKindError(core.KindValidationFailed, errors.New("workflow id is empty"), "MISSING_ID", "a workflow id is required", nil)
	}
	return c.do(ctx, http.MethodDelete, apiPrefix+"/workflows/"+url.PathEscape(id), nil, nil, TimeoutGet)
}

// ActivateWorkflow flips the server-side active flag.
func (c *Client) ActivateWorkflow(ctx context.Context, id string, active bool) (*workflow.Workflow, error) {
	if id == "" {
		return nil, core.NewKindError(core.KindValidationFailed, errors.New("workflow id is empty"), "MISSING_ID", "a workflow id is required", nil)
	}
	action := "activate"
	if !active {
		action = "deactivate"
	}
	var out workflow.Workflow
	path := fmt.Sprintf("%s/workflows/%s/%s", apiPrefix, url.PathEscape(id), action)
	if err := c.do(ctx, http.MethodPost, path, nil, &out, TimeoutGet); err != nil {
		return nil, err
	}
	return &out, nil
}

// statusOf extracts the HTTP status a surfaced error carries, or 0.
func statusOf(err error) int {
	var coreErr *core.Error
	if !errors.As(err, &coreErr) || coreErr.Details == nil {
		return 0
	}
	if status, ok := coreErr.Details["status"].(int); ok {
		return status
	}
	return 0
}
