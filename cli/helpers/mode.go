package helpers

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// OutputFormat selects how command results are rendered.
type OutputFormat string

const (
	FormatAuto  OutputFormat = "auto"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
	FormatTable OutputFormat = "table"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	case FormatTable:
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (json, yaml, table, auto)", s)
	}
}

// ResolveFormat turns auto into a concrete format: tables for interactive
// terminals, JSON everywhere else.
func ResolveFormat(format OutputFormat) OutputFormat {
	if format != FormatAuto && format != "" {
		return format
	}
	if IsInteractive() {
		return FormatTable
	}
	return FormatJSON
}

// ciEnvVars are environment markers of CI systems.
var ciEnvVars = []string{
	"CI", "GITHUB_ACTIONS", "GITLAB_CI", "CIRCLECI", "TRAVIS",
	"BUILDKITE", "DRONE", "JENKINS_URL", "TEAMCITY_VERSION",
}

func isRunningInCI() bool {
	for _, v := range ciEnvVars {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// IsInteractive reports whether stdout is a human-facing terminal.
func IsInteractive() bool {
	if isRunningInCI() {
		return false
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	term := os.Getenv("TERM")
	if term == "" || term == "dumb" {
		return false
	}
	return true
}
