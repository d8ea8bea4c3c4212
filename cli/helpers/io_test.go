package helpers

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n8n-cli/n8nctl/engine/core"
)

type fakeTable struct{}

func (fakeTable) TableHeader() []string { return []string{"ID", "NAME"} }
func (fakeTable) TableRows() [][]string {
	return [][]string{{"wf1", "Order intake"}, {"wf2", "Billing"}}
}

func TestParseFormat(t *testing.T) {
	t.Run("Should accept the known formats", func(t *testing.T) {
		for raw, want := range map[string]OutputFormat{
			"":      FormatAuto,
			"auto":  FormatAuto,
			"json":  FormatJSON,
			"YAML":  FormatYAML,
			"table": FormatTable,
		} {
			got, err := ParseFormat(raw)
			require.NoError(t, err, "format %q", raw)
			assert.Equal(t, want, got)
		}
	})

	t.Run("Should reject unknown formats", func(t *testing.T) {
		_, err := ParseFormat("xml")
		assert.Error(t, err)
	})
}

func TestOutputWriter(t *testing.T) {
	t.Run("Should render indented JSON", func(t *testing.T) {
		var buf bytes.Buffer
		ow := NewOutputWriter(&buf, FormatJSON)
		require.NoError(t, ow.WriteData(map[string]any{"name": "Intake"}))
		assert.Contains(t, buf.String(), "\"name\": \"Intake\"")
	})

	t.Run("Should render YAML", func(t *testing.T) {
		var buf bytes.Buffer
		ow := NewOutputWriter(&buf, FormatYAML)
		require.NoError(t, ow.WriteData(map[string]any{"name": "Intake"}))
		assert.Contains(t, buf.String(), "name: Intake")
	})

	t.Run("Should render tables with aligned columns", func(t *testing.T) {
		var buf bytes.Buffer
		ow := NewOutputWriter(&buf, FormatTable)
		require.NoError(t, ow.WriteData(fakeTable{}))
		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		require.Len(t, lines, 3)
		assert.Contains(t, lines[0], "ID")
		assert.Contains(t, lines[1], "Order intake")
	})

	t.Run("Should measure cells by display width, not bytes", func(t *testing.T) {
		// Wide runes occupy two columns but three bytes each.
		assert.Equal(t, "日本    ", pad("日本", 8))

		got := truncate("ワークフロー一覧", 7)
		assert.True(t, utf8.ValidString(got))
		assert.LessOrEqual(t, runewidth.StringWidth(got), 7)
		assert.True(t, strings.HasSuffix(got, "…"))

		assert.Equal(t, "short", truncate("short", 10))
	})

	t.Run("Should fall back to JSON when table data has no tabular form", func(t *testing.T) {
		var buf bytes.Buffer
		ow := NewOutputWriter(&buf, FormatTable)
		require.NoError(t, ow.WriteData(map[string]any{"plain": true}))
		assert.Contains(t, buf.String(), "\"plain\": true")
	})
}

func TestReadWorkflowFile(t *testing.T) {
	t.Run("Should read an existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "wf.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"name":"Intake"}`), 0o600))
		data, err := ReadWorkflowFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "Intake")
	})

	t.Run("Should report a missing file as not-found", func(t *testing.T) {
		_, err := ReadWorkflowFile(filepath.Join(t.TempDir(), "missing.json"))
		require.Error(t, err)
		assert.Equal(t, core.KindNotFound, core.KindOf(err))
	})

	t.Run("Should reject an empty path", func(t *testing.T) {
		_, err := ReadWorkflowFile("")
		require.Error(t, err)
		assert.Equal(t, core.KindValidationFailed, core.KindOf(err))
	})
}
