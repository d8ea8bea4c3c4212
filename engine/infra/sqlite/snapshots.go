package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/n8n-cli/n8nctl/engine/core"
)

// ErrSnapshotNotFound reports a snapshot id absent from the store.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is one recorded version of a workflow document.
type Snapshot struct {
	ID         int64     `json:"id"`
	WorkflowID string    `json:"workflowId"`
	Name       string    `json:"name"`
	Operation  string    `json:"operation"`
	Document   string    `json:"document"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SaveSnapshot records a workflow version and returns its id.
func (s *Store) SaveSnapshot(ctx context.Context, snap *Snapshot) (int64, error) {
	const q = `INSERT INTO snapshots (workflow_id, name, operation, document) VALUES (?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, snap.WorkflowID, snap.Name, snap.Operation, snap.Document)
	if err != nil {
		return 0, core.NewError(err, "SNAPSHOT_SAVE_FAILED", map[string]any{"workflow_id": snap.WorkflowID})
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, core.NewError(err, "SNAPSHOT_SAVE_FAILED", map[string]any{"workflow_id": snap.WorkflowID})
	}
	return id, nil
}

// ListSnapshots returns snapshots for a workflow, newest first, without
// their documents. A zero limit means no cap.
func (s *Store) ListSnapshots(ctx context.Context, workflowID string, limit int) ([]*Snapshot, error) {
	q := `SELECT id, workflow_id, name, operation, created_at FROM snapshots
	      WHERE workflow_id = ? ORDER BY created_at DESC, id DESC`
	args := []any{workflowID}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, core.NewError(err, "SNAPSHOT_LIST_FAILED", map[string]any{"workflow_id": workflowID})
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		snap := &Snapshot{}
		var createdAt string
		if err := rows.Scan(&snap.ID, &snap.WorkflowID, &snap.Name, &snap.Operation, &createdAt); err != nil {
			return nil, core.NewError(err, "SNAPSHOT_LIST_FAILED", map[string]any{"workflow_id": workflowID})
		}
		snap.CreatedAt = parseStoredTime(createdAt)
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewError(err, "SNAPSHOT_LIST_FAILED", map[string]any{"workflow_id": workflowID})
	}
	return out, nil
}

// GetSnapshot fetches one snapshot with its full document.
func (s *Store) GetSnapshot(ctx context.Context, id int64) (*Snapshot, error) {
	const q = `SELECT id, workflow_id, name, operation, document, created_at FROM snapshots WHERE id = ?`
	snap := &Snapshot{}
	var createdAt string
	err := s.db.QueryRowContext(ctx, q, id).
		Scan(&snap.ID, &snap.WorkflowID, &snap.Name, &snap.Operation, &snap.Document, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, core.NewError(err, "SNAPSHOT_GET_FAILED", map[string]any{"id": id})
	}
	snap.CreatedAt = parseStoredTime(createdAt)
	return snap, nil
}

// PruneSnapshots keeps the newest keep snapshots for a workflow and
// deletes the rest, returning how many were removed.
func (s *Store) PruneSnapshots(ctx context.Context, workflowID string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	const q = `DELETE FROM snapshots WHERE workflow_id = ? AND id NOT IN (
	             SELECT id FROM snapshots WHERE workflow_id = ?
	             ORDER BY created_at DESC, id DESC LIMIT ?)`
	res, err := s.db.ExecContext(ctx, q, workflowID, workflowID, keep)
	if err != nil {
		return 0, core.NewError(err, "SNAPSHOT_PRUNE_FAILED", map[string]any{"workflow_id": workflowID})
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, core.NewError(err, "SNAPSHOT_PRUNE_FAILED", map[string]any{"workflow_id": workflowID})
	}
	return n, nil
}

// parseStoredTime reads the store's timestamp column leniently.
func parseStoredTime(value string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999Z", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
