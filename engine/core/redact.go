package core

import (
	"regexp"
	"strings"
)

// Precompiled patterns for common secret shapes in error/log strings.
var (
	bearerTokenRe = regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9\-\._~\+\/]+=*`)
	kvSecretRe    = regexp.MustCompile(
		`(?i)(api[_-]?key|token|secret|password|credential|authorization)\s*[:=]\s*["']?[^"'\s]+["']?`,
	)
	jwtRe = regexp.MustCompile(`\b(eyJ[A-Za-z0-9_\-]+\.eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+)\b`)
)

const redactedPlaceholder = "[REDACTED]"

// sensitiveHeaderNames lists headers whose values never reach logs or errors.
// Matching is case-insensitive.
var sensitiveHeaderNames = []string{
	"x-n8n-api-key",
	"authorization",
	"proxy-authorization",
	"cookie",
	"set-cookie",
}

// sensitiveBodyKeys lists body object keys redacted recursively.
var sensitiveBodyKeys = []string{
	"apikey", "api_key", "password", "secret", "token", "authorization",
}

// RedactString trims, truncates, and scrubs common secret patterns.
// It is idempotent: redacting an already-redacted string changes nothing.
func RedactString(s string) string {
	const maxLen = 512
	s = strings.TrimSpace(s)
	s = jwtRe.ReplaceAllString(s, redactedPlaceholder)
	s = bearerTokenRe.ReplaceAllString(s, "$1"+redactedPlaceholder)
	s = kvSecretRe.ReplaceAllString(s, "$1="+redactedPlaceholder)
	if len(s) > maxLen {
		s = s[:maxLen] + "…"
	}
	return s
}

// RedactError applies RedactString to an error, returning an empty string when nil.
func RedactError(err error) string {
	if err == nil {
		return ""
	}
	return RedactString(err.Error())
}

// IsSensitiveHeader reports whether a header name belongs to the secret set.
func IsSensitiveHeader(name string) bool {
	for _, h := range sensitiveHeaderNames {
		if strings.EqualFold(name, h) {
			return true
		}
	}
	return false
}

// RedactHeaders returns a copy of headers with sensitive values redacted.
// Non-sensitive values still pass through RedactString to catch embedded secrets.
func RedactHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return headers
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if IsSensitiveHeader(k) {
			out[k] = redactedPlaceholder
			continue
		}
		out[k] = RedactString(v)
	}
	return out
}

// redactBodyMaxDepth bounds recursion so adversarial nesting cannot stall redaction.
const redactBodyMaxDepth = 16

// RedactBody walks a decoded JSON body and replaces values under sensitive
// keys with a placeholder. The input is mutated in place and returned.
func RedactBody(body any) any {
	return redactBody(body, 0)
}

func redactBody(v any, depth int) any {
	if depth > redactBodyMaxDepth {
		return v
	}
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if isSensitiveBodyKey(k) {
				t[k] = redactedPlaceholder
				continue
			}
			t[k] = redactBody(val, depth+1)
		}
		return t
	case []any:
		for i := range t {
			t[i] = redactBody(t[i], depth+1)
		}
		return t
	case string:
		return RedactString(t)
	default:
		return v
	}
}

func isSensitiveBodyKey(key string) bool {
	lower := strings.ToLower(key)
	for _, k := range sensitiveBodyKeys {
		if lower == k {
			return true
		}
	}
	return false
}
