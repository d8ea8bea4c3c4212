package api

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"

	"github.com/n8n-cli/n8nctl/engine/core"
	"github.com/n8n-cli/n8nctl/pkg/logger"
)

// APIKeyHeader carries the credential on every request.
const APIKeyHeader = "X-N8N-API-KEY"

const apiPrefix = "/api/v1"

// Per-operation default timeouts. The caller's context deadline always
// wins when it is earlier.
const (
	TimeoutHealth        = 5 * time.Second
	TimeoutList          = 15 * time.Second
	TimeoutGet           = 30 * time.Second
	TimeoutExecutionData = 60 * time.Second
	TimeoutWebhook       = 30 * time.Second
	TimeoutWebhookWait   = 120 * time.Second
)

// Retry policy: up to 3 attempts total, exponential backoff from 1s capped
// at 8s with jitter. A Retry-After wait replaces the backoff step without
// consuming it.
const (
	maxAttempts     = 3
	backoffBase     = 1 * time.Second
	backoffCap      = 8 * time.Second
	backoffJitter   = 500 * time.Millisecond
	minRetryAfter   = 1 * time.Second
	maxConnsPerHost = 10
)

// Config wires a client to one server.
type Config struct {
	BaseURL string
	APIKey  string
	// Timeout overrides every per-operation default when positive.
	Timeout     time.Duration
	InsecureTLS bool
}

// Client talks to the workflow server. It is safe for concurrent use.
type Client struct {
	http *resty.Client
	cfg  Config
	// sleep is swapped out by tests to observe waits without real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient validates the configuration and builds the shared HTTP client.
func NewClient(cfg Config) (*Client, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, core.NewKindError(core.KindConfigInvalid, err, "INVALID_HOST", "host is not a valid URL", nil)
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return nil, core.NewKindError(core.KindConfigInvalid, errors.New("host must be an absolute URL"),
			"INVALID_HOST", fmt.Sprintf("host %q must include a scheme and address", cfg.BaseURL), nil)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, core.NewKindError(core.KindConfigInvalid, errors.New("unsupported scheme"),
			"INVALID_HOST", fmt.Sprintf("host scheme must be http or https, got %q", parsed.Scheme), nil)
	}
	if cfg.APIKey == "" {
		return nil, core.NewKindError(core.KindConfigInvalid, errors.New("api key is empty"),
			"MISSING_API_KEY", "an API key is required (config file or N8N_API_KEY)", nil)
	}

	transport := &http.Transport{
		MaxConnsPerHost:     maxConnsPerHost,
		MaxIdleConnsPerHost: maxConnsPerHost,
	}
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // user opt-in
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTransport(transport).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader(APIKeyHeader, cfg.APIKey)

	return &Client{http: client, cfg: cfg, sleep: sleepCtx}, nil
}

// opTimeout picks the effective per-operation timeout.
func (c *Client) opTimeout(fallback time.Duration) time.Duration {
	if c.cfg.Timeout > 0 {
		return c.cfg.Timeout
	}
	return fallback
}

// do runs one logical request with the retry policy. Transport errors in
// the retryable set, 5xx, and 429 are retried; other 4xx never are. Only
// the final error surfaces, sanitized.
func (c *Client) do(ctx context.Context, method, path string, body, result any, timeout time.Duration) error {
	log := logger.FromContext(ctx)
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout(timeout))
	defer cancel()

	backoff := retry.WithJitter(backoffJitter,
		retry.WithCappedDuration(backoffCap, retry.NewExponential(backoffBase)))

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := c.execute(opCtx, method, path, body, result)
		switch {
		case err != nil:
			lastErr = transportError(err, method, path)
			if !retryableTransport(err) || attempt == maxAttempts {
				return lastErr
			}
		case resp.StatusCode() < http.StatusBadRequest:
			log.Debug("request completed", "method", method, "path", path,
				"status", resp.StatusCode(), "attempt", attempt)
			return nil
		default:
			retryAfter, hasRetryAfter := parseRetryAfter(resp.Header().Get("Retry-After"))
			log.Debug("request rejected", "method", method, "path", path,
				"status", resp.StatusCode(), "attempt", attempt,
				"headers", core.RedactHeaders(headerMap(resp.Header())))
			lastErr = statusError(resp.StatusCode(), resp.String(), retryAfter, method, path)
			if !retryableStatus(resp.StatusCode()) || attempt == maxAttempts {
				return lastErr
			}
			if resp.StatusCode() == http.StatusTooManyRequests && hasRetryAfter {
				// Honor the server's wait without consuming a backoff step.
				wait := retryAfter
				if wait < minRetryAfter {
					wait = minRetryAfter
				}
				if err := c.sleep(opCtx, wait); err != nil {
					return lastErr
				}
				log.Debug("rate limited, retried after server wait",
					"path", path, "wait", wait, "attempt", attempt)
				continue
			}
		}
		step, ok := backoff.Next()
		if !ok {
			return lastErr
		}
		if err := c.sleep(opCtx, step); err != nil {
			return lastErr
		}
		log.Debug("retrying request", "method", method, "path", path, "attempt", attempt+1)
	}
	return lastErr
}

func (c *Client) execute(ctx context.Context, method, path string, body, result any) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	switch method {
	case http.MethodGet:
		return req.Get(path)
	case http.MethodPost:
		return req.Post(path)
	case http.MethodPut:
		return req.Put(path)
	case http.MethodPatch:
		return req.Patch(path)
	case http.MethodDelete:
		return req.Delete(path)
	}
	return nil, fmt.Errorf("unsupported method %q", method)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Health probes the unversioned health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, TimeoutHealth)
}
