package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/pretty"

	"github.com/n8n-cli/n8nctl/engine/core"
	"github.com/n8n-cli/n8nctl/pkg/logger"
)

const (
	backupDirMode  = 0o700
	backupFileMode = 0o600
	// backupTimeFormat keeps filenames sortable and collision-free at
	// millisecond granularity.
	backupTimeFormat = "20060102T150405.000"
)

// Backups writes pre-mutation workflow dumps to the local backup
// directory. Strict mode turns a failed backup into a hard error.
type Backups struct {
	dir    string
	strict bool
	now    func() time.Time
}

// NewBackups builds the service rooted at dir, usually
// ~/.n8n-cli/backups.
func NewBackups(dir string, strict bool) *Backups {
	return &Backups{dir: dir, strict: strict, now: time.Now}
}

// Save persists a workflow document before a mutation and returns the
// backup path. The dump is pretty-printed and readable only by the
// invoking user.
func (b *Backups) Save(ctx context.Context, operation, workflowID string, document []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(b.dir, backupDirMode); err != nil {
		return "", core.NewError(err, "BACKUP_DIR_CREATE_FAILED", map[string]any{"dir": b.dir})
	}
	name := fmt.Sprintf("%s-%s-%s.json",
		sanitizeComponent(operation),
		sanitizeComponent(workflowID),
		b.now().UTC().Format(backupTimeFormat))
	path := filepath.Join(b.dir, name)
	if err := os.WriteFile(path, pretty.Pretty(document), backupFileMode); err != nil {
		return "", core.NewError(err, "BACKUP_WRITE_FAILED", map[string]any{"path": path})
	}
	return path, nil
}

// SaveBestEffort applies the propagation policy for backups: failures
// warn and let the mutation proceed, unless strict mode is on.
func (b *Backups) SaveBestEffort(ctx context.Context, operation, workflowID string, document []byte) (string, error) {
	path, err := b.Save(ctx, operation, workflowID, document)
	if err == nil {
		return path, nil
	}
	if b.strict {
		return "", err
	}
	logger.FromContext(ctx).Warn("backup failed, continuing",
		"operation", operation, "workflow_id", workflowID, "error", err)
	return "", nil
}

// sanitizeComponent keeps filename parts free of path separators and
// shell-hostile characters.
func sanitizeComponent(s string) string {
	if s == "" {
		return "unknown"
	}
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
