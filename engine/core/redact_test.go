package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactString(t *testing.T) {
	t.Run("Should scrub bearer tokens", func(t *testing.T) {
		out := RedactString("request failed: Bearer abc123DEF")
		assert.NotContains(t, out, "abc123DEF")
		assert.Contains(t, out, "[REDACTED]")
	})

	t.Run("Should scrub key=value secrets", func(t *testing.T) {
		out := RedactString(`apiKey: "n8n_secret_value"`)
		assert.NotContains(t, out, "n8n_secret_value")
	})

	t.Run("Should be idempotent", func(t *testing.T) {
		once := RedactString("token=supersecret")
		twice := RedactString(once)
		assert.Equal(t, once, twice)
	})

	t.Run("Should truncate very long strings", func(t *testing.T) {
		out := RedactString(strings.Repeat("x", 2000))
		assert.Less(t, len(out), 600)
	})
}

func TestRedactHeaders(t *testing.T) {
	t.Run("Should redact the secret header set case-insensitively", func(t *testing.T) {
		out := RedactHeaders(map[string]string{
			"X-N8N-API-KEY": "topsecret",
			"Authorization": "Bearer tok",
			"Cookie":        "session=abc",
			"Content-Type":  "application/json",
		})
		assert.Equal(t, "[REDACTED]", out["X-N8N-API-KEY"])
		assert.Equal(t, "[REDACTED]", out["Authorization"])
		assert.Equal(t, "[REDACTED]", out["Cookie"])
		assert.Equal(t, "application/json", out["Content-Type"])
	})
}

func TestRedactBody(t *testing.T) {
	t.Run("Should redact sensitive keys recursively", func(t *testing.T) {
		body := map[string]any{
			"name": "wf",
			"credentials": map[string]any{
				"apiKey":   "secret1",
				"password": "secret2",
				"nested":   []any{map[string]any{"token": "secret3"}},
			},
		}
		out := RedactBody(body).(map[string]any)
		creds := out["credentials"].(map[string]any)
		assert.Equal(t, "[REDACTED]", creds["apiKey"])
		assert.Equal(t, "[REDACTED]", creds["password"])
		nested := creds["nested"].([]any)[0].(map[string]any)
		assert.Equal(t, "[REDACTED]", nested["token"])
		assert.Equal(t, "wf", out["name"])
	})

	t.Run("Should stop at the depth bound without error", func(t *testing.T) {
		var deep any = "leaf"
		for i := 0; i < 40; i++ {
			deep = map[string]any{"level": deep}
		}
		require.NotPanics(t, func() { RedactBody(deep) })
	})
}
