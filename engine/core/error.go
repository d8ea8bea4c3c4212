package core

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an error into one of the stable variants consumed by the
// CLI layer. Exit codes are derived from the kind, never from the message.
type Kind string

const (
	KindNotFound         Kind = "not-found"
	KindAuthFailed       Kind = "auth-failed"
	KindRateLimited      Kind = "rate-limited"
	KindServerError      Kind = "server-error"
	KindTransportError   Kind = "transport-error"
	KindTimeout          Kind = "timeout"
	KindCancelled        Kind = "cancelled"
	KindValidationFailed Kind = "validation-failed"
	KindParseFailed      Kind = "parse-failed"
	KindConflict         Kind = "conflict"
	KindConfigInvalid    Kind = "config-invalid"
	KindPermissionDenied Kind = "permission-denied"
	KindInternal         Kind = "internal"
)

// Error represents errors that can occur during CLI operations. Details carry
// structured context (e.g. retry-after seconds) for the UI layer; values placed
// there must already be sanitized.
type Error struct {
	Kind    Kind           `json:"kind"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given code and structured details.
func NewError(err error, code string, details map[string]any) *Error {
	return &Error{
		Kind:    KindInternal,
		Code:    code,
		Message: messageFor(err, code),
		Err:     err,
		Details: details,
	}
}

// NewKindError creates a new Error with an explicit kind.
func NewKindError(kind Kind, err error, code, message string, details map[string]any) *Error {
	if message == "" {
		message = messageFor(err, code)
	}
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}

func messageFor(err error, code string) string {
	if err != nil {
		return err.Error()
	}
	return code
}

// KindOf reports the kind of err, unwrapping as needed. Plain errors map to
// KindInternal; context cancellation maps to KindCancelled.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	return KindInternal
}

// RetryAfterSeconds extracts the rate-limit wait hint from err when present.
func RetryAfterSeconds(err error) (int, bool) {
	var coreErr *Error
	if !errors.As(err, &coreErr) {
		return 0, false
	}
	if coreErr.Kind != KindRateLimited || coreErr.Details == nil {
		return 0, false
	}
	switch v := coreErr.Details["retry_after_seconds"].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
