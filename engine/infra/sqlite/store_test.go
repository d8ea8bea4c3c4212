package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.db")
	store, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen(t *testing.T) {
	t.Run("Should create the database and apply migrations", func(t *testing.T) {
		store := openTestStore(t)
		var name string
		err := store.db.QueryRow(
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'snapshots'`).Scan(&name)
		require.NoError(t, err)
		assert.Equal(t, "snapshots", name)
	})

	t.Run("Should create missing parent directories with owner-only mode", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "state")
		store, err := Open(context.Background(), filepath.Join(dir, "data.db"))
		require.NoError(t, err)
		defer store.Close()

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
	})

	t.Run("Should reopen an existing database without error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data.db")
		first, err := Open(context.Background(), path)
		require.NoError(t, err)
		require.NoError(t, first.Close())

		second, err := Open(context.Background(), path)
		require.NoError(t, err)
		assert.NoError(t, second.Close())
	})
}

func TestSnapshots(t *testing.T) {
	ctx := context.Background()

	t.Run("Should save and fetch a snapshot with its document", func(t *testing.T) {
		store := openTestStore(t)
		id, err := store.SaveSnapshot(ctx, &Snapshot{
			WorkflowID: "wf1",
			Name:       "Order intake",
			Operation:  "update",
			Document:   `{"name":"Order intake","nodes":[]}`,
		})
		require.NoError(t, err)
		require.Positive(t, id)

		snap, err := store.GetSnapshot(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "wf1", snap.WorkflowID)
		assert.Equal(t, "update", snap.Operation)
		assert.Contains(t, snap.Document, "Order intake")
		assert.False(t, snap.CreatedAt.IsZero())
	})

	t.Run("Should report a missing snapshot with the sentinel", func(t *testing.T) {
		store := openTestStore(t)
		_, err := store.GetSnapshot(ctx, 12345)
		assert.ErrorIs(t, err, ErrSnapshotNotFound)
	})

	t.Run("Should list snapshots newest first without documents", func(t *testing.T) {
		store := openTestStore(t)
		for _, op := range []string{"create", "update", "delete"} {
			_, err := store.SaveSnapshot(ctx, &Snapshot{WorkflowID: "wf1", Operation: op, Document: "{}"})
			require.NoError(t, err)
		}
		_, err := store.SaveSnapshot(ctx, &Snapshot{WorkflowID: "other", Operation: "update", Document: "{}"})
		require.NoError(t, err)

		list, err := store.ListSnapshots(ctx, "wf1", 0)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "delete", list[0].Operation)
		assert.Equal(t, "create", list[2].Operation)
		assert.Empty(t, list[0].Document)
	})

	t.Run("Should honor the listing limit", func(t *testing.T) {
		store := openTestStore(t)
		for range 5 {
			_, err := store.SaveSnapshot(ctx, &Snapshot{WorkflowID: "wf1", Operation: "update", Document: "{}"})
			require.NoError(t, err)
		}
		list, err := store.ListSnapshots(ctx, "wf1", 2)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("Should prune old snapshots and keep the newest", func(t *testing.T) {
		store := openTestStore(t)
		var last int64
		for range 5 {
			id, err := store.SaveSnapshot(ctx, &Snapshot{WorkflowID: "wf1", Operation: "update", Document: "{}"})
			require.NoError(t, err)
			last = id
		}
		removed, err := store.PruneSnapshots(ctx, "wf1", 2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), removed)

		list, err := store.ListSnapshots(ctx, "wf1", 0)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, last, list[0].ID)
	})
}
