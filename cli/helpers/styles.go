package helpers

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/n8n-cli/n8nctl/engine/core"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// Success renders a green status line.
func Success(msg string) string {
	return successStyle.Render("✓ " + msg)
}

// Warning renders a yellow status line.
func Warning(msg string) string {
	return warnStyle.Render("⚠ " + msg)
}

// kindIcons maps error kinds to the glyph shown before the message.
var kindIcons = map[core.Kind]string{
	core.KindNotFound:         "∅",
	core.KindAuthFailed:       "🔒",
	core.KindPermissionDenied: "🔒",
	core.KindRateLimited:      "⏳",
	core.KindTimeout:          "⏱",
	core.KindCancelled:        "✗",
	core.KindValidationFailed: "✗",
	core.KindParseFailed:      "✗",
	core.KindConfigInvalid:    "⚙",
}

// kindHints maps error kinds to a one-line remedy.
var kindHints = map[core.Kind]string{
	core.KindAuthFailed:       "check apiKey in the config file or N8N_API_KEY",
	core.KindPermissionDenied: "the configured credential lacks access to this resource",
	core.KindConfigInvalid:    "run with --config to point at a valid config file",
	core.KindTransportError:   "check that the server at the configured host is reachable",
	core.KindServerError:      "the server failed; retry or check its logs",
}

// RenderError formats a surfaced error for the terminal: icon, sanitized
// message, optional hint, and structured detail only in verbose mode.
func RenderError(err error, verbose bool) string {
	kind := core.KindOf(err)
	icon := kindIcons[kind]
	if icon == "" {
		icon = "✗"
	}

	var sb strings.Builder
	sb.WriteString(errorStyle.Render(fmt.Sprintf("%s %s", icon, core.RedactError(err))))

	if kind == core.KindRateLimited {
		if seconds, ok := core.RetryAfterSeconds(err); ok {
			sb.WriteString("\n" + warnStyle.Render(fmt.Sprintf("  rate limited; retry in %ds", seconds)))
		}
	}
	if hint, ok := kindHints[kind]; ok {
		sb.WriteString("\n" + dimStyle.Render("  hint: "+hint))
	}
	if verbose {
		if coreErr := asCoreError(err); coreErr != nil && len(coreErr.Details) > 0 {
			for _, line := range detailLines(coreErr.Details) {
				sb.WriteString("\n" + dimStyle.Render("  "+line))
			}
		}
	}
	return sb.String()
}

func asCoreError(err error) *core.Error {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		return coreErr
	}
	return nil
}

func detailLines(details map[string]any) []string {
	lines := make([]string, 0, len(details))
	for k, v := range details {
		lines = append(lines, fmt.Sprintf("%s: %s", k, core.RedactString(fmt.Sprint(v))))
	}
	sort.Strings(lines)
	return lines
}
