// Package config loads CLI configuration from defaults, an optional JSON
// config file, and environment variables, in that order of ascending
// precedence. Secrets are carried as SensitiveString so they cannot leak
// through logging or JSON output.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the fully resolved configuration consumed by the CLI.
type Config struct {
	// Host is the base URL of the remote workflow server.
	Host string `koanf:"host" env:"N8N_HOST" validate:"omitempty,url"`
	// APIKey is the credential sent in the API-key header.
	APIKey SensitiveString `koanf:"apiKey" env:"N8N_API_KEY" sensitive:"true"`
	// Timeout overrides the per-operation defaults when positive.
	// The file and environment carry it in milliseconds.
	Timeout time.Duration `koanf:"timeout" env:"N8N_TIMEOUT_MS"`
	// DBPath overrides the bundled catalog location. Environment only.
	DBPath string `koanf:"dbPath" env:"N8N_CLI_DB_PATH"`
	// InsecureHTTPS allows self-signed TLS on the API client only.
	InsecureHTTPS bool `koanf:"insecureHttps" env:"N8N_INSECURE_HTTPS"`
	// CleanupTimeout caps shutdown cleanup. Environment only, milliseconds.
	CleanupTimeout time.Duration `koanf:"cleanupTimeoutMs" env:"N8N_CLI_CLEANUP_TIMEOUT_MS"`
	// StrictPermissions refuses group/world-readable config files and
	// turns backup failures into hard errors.
	StrictPermissions bool `koanf:"strictPermissions" env:"N8N_CLI_STRICT_PERMISSIONS"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:           "http://localhost:5678",
		CleanupTimeout: 5 * time.Second,
	}
}

// DefaultFilePath resolves the default config file location. An empty
// string means no home directory is resolvable.
func DefaultFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".n8n-cli", "config.json")
}
