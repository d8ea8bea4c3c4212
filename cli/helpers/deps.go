package helpers

import (
	"context"
	"os"
	"path/filepath"

	"github.com/n8n-cli/n8nctl/engine/api"
	"github.com/n8n-cli/n8nctl/engine/catalog"
	"github.com/n8n-cli/n8nctl/engine/infra/sqlite"
	"github.com/n8n-cli/n8nctl/engine/lifecycle"
	"github.com/n8n-cli/n8nctl/pkg/config"
)

// APIClient builds the HTTP client from the context configuration.
func APIClient(ctx context.Context) (*api.Client, error) {
	cfg := config.FromContext(ctx)
	return api.NewClient(api.Config{
		BaseURL:     cfg.Host,
		APIKey:      cfg.APIKey.Value(),
		Timeout:     cfg.Timeout,
		InsecureTLS: cfg.InsecureHTTPS,
	})
}

// CatalogPath resolves the bundled catalog location: the dbPath override
// when set, otherwise catalog.db next to the executable.
func CatalogPath(cfg *config.Config) string {
	if cfg.DBPath != "" {
		return cfg.DBPath
	}
	exe, err := os.Executable()
	if err != nil {
		return "catalog.db"
	}
	return filepath.Join(filepath.Dir(exe), "catalog.db")
}

// Catalog opens the read-only node-type catalog.
func Catalog(ctx context.Context) (*catalog.Store, error) {
	return catalog.Open(ctx, CatalogPath(config.FromContext(ctx)))
}

// LocalStore opens the writable snapshot database under ~/.n8n-cli.
func LocalStore(ctx context.Context) (*sqlite.Store, error) {
	path, err := sqlite.DefaultPath()
	if err != nil {
		return nil, err
	}
	return sqlite.Open(ctx, path)
}

// BackupService builds the pre-mutation backup writer.
func BackupService(ctx context.Context) (*lifecycle.Backups, error) {
	dir, err := sqlite.StateDir()
	if err != nil {
		return nil, err
	}
	cfg := config.FromContext(ctx)
	return lifecycle.NewBackups(filepath.Join(dir, "backups"), cfg.StrictPermissions), nil
}
