package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/n8n-cli/n8nctl/engine/core"
)

// WebhookRequest describes a webhook trigger.
type WebhookRequest struct {
	// Path is the webhook path relative to the server, or an absolute URL.
	Path string
	// Method defaults to POST.
	Method string
	// Body is serialized as JSON when non-nil.
	Body any
	// Test hits the test endpoint instead of the production one.
	Test bool
	// WaitForResponse keeps the connection open for workflows that
	// respond from a later node.
	WaitForResponse bool
}

// WebhookResponse is whatever the workflow answered with.
type WebhookResponse struct {
	Status int
	Body   map[string]any
}

// TriggerWebhook fires a webhook and returns the workflow's reply.
// Webhook URLs live outside the versioned API prefix.
func (c *Client) TriggerWebhook(ctx context.Context, req WebhookRequest) (*WebhookResponse, error) {
	if req.Path == "" {
		return nil, core.NewKindError(core.KindValidationFailed, errors.New("webhook path is empty"), "MISSING_PATH", "a webhook path is required", nil)
	}
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodPost
	}
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return nil, core.NewKindError(core.KindValidationFailed, errors.New("unsupported webhook method"), "INVALID_METHOD", "webhook method must be GET, POST, PUT, PATCH or DELETE", map[string]any{"method": req.Method})
	}

	path := req.Path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		prefix := "/webhook/"
		if req.Test {
			prefix = "/webhook-test/"
		}
		path = prefix + strings.TrimPrefix(path, "/")
	}

	timeout := TimeoutWebhook
	if req.WaitForResponse {
		timeout = TimeoutWebhookWait
	}

	var body map[string]any
	if err := c.do(ctx, method, path, req.Body, &body, timeout); err != nil {
		return nil, err
	}
	return &WebhookResponse{Status: http.StatusOK, Body: body}, nil
}
