package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/n8n-cli/n8nctl/engine/core"
)

// maxErrorBodyBytes bounds how much of a response body an error carries.
const maxErrorBodyBytes = 512

// classifyStatus maps an HTTP status to an error kind.
func classifyStatus(status int) core.Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return core.KindRateLimited
	case status >= 500:
		return core.KindServerError
	case status == http.StatusUnauthorized:
		return core.KindAuthFailed
	case status == http.StatusForbidden:
		return core.KindPermissionDenied
	case status == http.StatusNotFound:
		return core.KindNotFound
	case status == http.StatusConflict:
		return core.KindConflict
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return core.KindValidationFailed
	default:
		return core.KindServerError
	}
}

// retryableStatus reports whether a status is worth another attempt. 4xx
// other than 429 never are.
func retryableStatus(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}

// retryableTransport reports whether a transport error matches the
// retryable set: resets, timeouts, refused or unreachable peers, DNS
// misses. Context cancellation is never retryable.
func retryableTransport(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	for _, errno := range []syscall.Errno{
		syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED,
		syscall.ENETUNREACH, syscall.EHOSTUNREACH, syscall.EPIPE,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

// transportError wraps a network failure in the module's taxonomy after
// sanitizing its text.
func transportError(err error, method, path string) error {
	kind := core.KindTransportError
	switch {
	case errors.Is(err, context.Canceled):
		kind = core.KindCancelled
	case errors.Is(err, context.DeadlineExceeded):
		kind = core.KindTimeout
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			kind = core.KindTimeout
		}
	}
	return core.NewKindError(kind, errors.New(core.RedactError(err)), "REQUEST_FAILED",
		fmt.Sprintf("%s %s failed", method, path), map[string]any{
			"method": method,
			"path":   path,
		})
}

// statusError builds the surfaced error for a non-2xx response. The body
// excerpt and message are sanitized; 429 carries the retry-after value.
func statusError(status int, body string, retryAfter time.Duration, method, path string) error {
	kind := classifyStatus(status)
	details := map[string]any{
		"status": status,
		"method": method,
		"path":   path,
	}
	if excerpt := redactedExcerpt(body); excerpt != "" {
		details["body"] = excerpt
	}
	msg := fmt.Sprintf("%s %s returned %d", method, path, status)
	if kind == core.KindRateLimited {
		seconds := int(retryAfter / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		details["retry_after_seconds"] = seconds
		msg = fmt.Sprintf("rate limited, retry in %ds", seconds)
	}
	return core.NewKindError(kind, errors.New(http.StatusText(status)), statusCode(kind), msg, details)
}

// redactedExcerpt sanitizes a response body before it enters error details.
// JSON bodies are decoded so secret-keyed fields are scrubbed wherever they
// nest; anything else falls through to pattern-based scrubbing.
func redactedExcerpt(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}
	var decoded any
	if err := json.Unmarshal([]byte(body), &decoded); err == nil {
		if out, err := json.Marshal(core.RedactBody(decoded)); err == nil {
			body = string(out)
		} else {
			body = core.RedactString(body)
		}
	} else {
		body = core.RedactString(body)
	}
	if len(body) > maxErrorBodyBytes {
		body = body[:maxErrorBodyBytes]
	}
	return body
}

// headerMap flattens response headers for sanitized debug logging.
func headerMap(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}

func statusCode(kind core.Kind) string {
	switch kind {
	case core.KindRateLimited:
		return "RATE_LIMITED"
	case core.KindAuthFailed:
		return "AUTH_FAILED"
	case core.KindPermissionDenied:
		return "PERMISSION_DENIED"
	case core.KindNotFound:
		return "NOT_FOUND"
	case core.KindConflict:
		return "CONFLICT"
	case core.KindValidationFailed:
		return "REQUEST_REJECTED"
	default:
		return "SERVER_ERROR"
	}
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}
