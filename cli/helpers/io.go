package helpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/n8n-cli/n8nctl/engine/core"
)

// Tabler lets a result type describe its own tabular rendering.
type Tabler interface {
	TableHeader() []string
	TableRows() [][]string
}

// OutputWriter renders command results in the selected format.
type OutputWriter struct {
	writer io.Writer
	format OutputFormat
	width  int
}

// NewOutputWriter builds a writer for a concrete (non-auto) format.
func NewOutputWriter(w io.Writer, format OutputFormat) *OutputWriter {
	return &OutputWriter{writer: w, format: ResolveFormat(format), width: terminalWidth()}
}

// WriteData renders data. Table format needs a Tabler; anything else
// falls back to JSON so scripts never lose output.
func (ow *OutputWriter) WriteData(data any) error {
	switch ow.format {
	case FormatYAML:
		return ow.writeYAML(data)
	case FormatTable:
		if tab, ok := data.(Tabler); ok {
			return ow.writeTable(tab)
		}
		return ow.writeJSON(data)
	default:
		return ow.writeJSON(data)
	}
}

func (ow *OutputWriter) writeJSON(data any) error {
	enc := json.NewEncoder(ow.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (ow *OutputWriter) writeYAML(data any) error {
	enc := yaml.NewEncoder(ow.writer)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(data)
}

func (ow *OutputWriter) writeTable(tab Tabler) error {
	header := tab.TableHeader()
	rows := tab.TableRows()
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); i < len(widths) && w > widths[i] {
				widths[i] = w
			}
		}
	}
	clampWidths(widths, ow.width)

	writeRow := func(cells []string, style func(string) string) {
		parts := make([]string, 0, len(cells))
		for i, cell := range cells {
			if i >= len(widths) {
				break
			}
			parts = append(parts, pad(truncate(cell, widths[i]), widths[i]))
		}
		fmt.Fprintln(ow.writer, style(strings.TrimRight(strings.Join(parts, "  "), " ")))
	}

	writeRow(header, func(s string) string { return headerStyle.Render(s) })
	for _, row := range rows {
		writeRow(row, func(s string) string { return s })
	}
	return nil
}

// clampWidths shrinks the widest columns until the row fits the terminal.
func clampWidths(widths []int, max int) {
	const gap = 2
	total := func() int {
		sum := gap * (len(widths) - 1)
		for _, w := range widths {
			sum += w
		}
		return sum
	}
	for total() > max {
		widest := 0
		for i, w := range widths {
			if w > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= 8 {
			return
		}
		widths[widest]--
	}
}

// truncate and pad measure display width, not bytes, so wide runes keep
// the columns aligned.
func truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

func pad(s string, width int) string {
	return runewidth.FillRight(s, width)
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 120
}

// Output builds the writer a command should render results with, driven
// by the persistent --output flag.
func Output(cmd *cobra.Command) *OutputWriter {
	raw, _ := cmd.Flags().GetString("output")
	format, err := ParseFormat(raw)
	if err != nil {
		format = FormatAuto
	}
	return NewOutputWriter(cmd.OutOrStdout(), format)
}

// ReadWorkflowFile reads a workflow document, mapping a missing file to
// the not-found kind so it exits 66.
func ReadWorkflowFile(path string) ([]byte, error) {
	if path == "" {
		return nil, core.NewKindError(core.KindValidationFailed, errors.New("path is empty"),
			"INVALID_PATH", "a workflow file path is required", nil)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, core.NewKindError(core.KindNotFound, err, "FILE_NOT_FOUND",
			fmt.Sprintf("workflow file %s does not exist", path), nil)
	}
	if err != nil {
		return nil, core.NewKindError(core.KindPermissionDenied, err, "FILE_READ_FAILED",
			fmt.Sprintf("workflow file %s could not be read", path), nil)
	}
	return data, nil
}
