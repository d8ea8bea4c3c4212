package lifecycle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerCleanup(t *testing.T) {
	t.Run("Should run cleanups in reverse registration order", func(t *testing.T) {
		m := NewManager(time.Second)
		var order []string
		m.OnShutdown("store", func(context.Context) error {
			order = append(order, "store")
			return nil
		})
		m.OnShutdown("http", func(context.Context) error {
			order = append(order, "http")
			return nil
		})

		m.Cleanup(context.Background())
		assert.Equal(t, []string{"http", "store"}, order)
	})

	t.Run("Should keep going when a step fails", func(t *testing.T) {
		m := NewManager(time.Second)
		var ran bool
		m.OnShutdown("first", func(context.Context) error {
			ran = true
			return nil
		})
		m.OnShutdown("broken", func(context.Context) error {
			return errors.New("flush failed")
		})

		m.Cleanup(context.Background())
		assert.True(t, ran)
	})

	t.Run("Should abandon cleanup when the deadline passes", func(t *testing.T) {
		m := NewManager(20 * time.Millisecond)
		var reached bool
		m.OnShutdown("after", func(context.Context) error {
			reached = true
			return nil
		})
		m.OnShutdown("slow", func(ctx context.Context) error {
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			return nil
		})

		start := time.Now()
		m.Cleanup(context.Background())
		assert.Less(t, time.Since(start), 500*time.Millisecond)
		assert.False(t, reached)
	})
}

func TestManagerWatch(t *testing.T) {
	t.Run("Should cancel the context and exit 143 on SIGTERM", func(t *testing.T) {
		m := NewManager(time.Second)
		exited := make(chan int, 1)
		m.exit = func(code int) { exited <- code }

		var cleaned bool
		m.OnShutdown("store", func(context.Context) error {
			cleaned = true
			return nil
		})

		ctx, stop := m.Watch(context.Background())
		defer stop()
		m.signals <- syscall.SIGTERM

		select {
		case code := <-exited:
			assert.Equal(t, ExitTerminated, code)
		case <-time.After(time.Second):
			t.Fatal("signal handler never exited")
		}
		assert.True(t, cleaned)
		assert.Error(t, ctx.Err())
	})

	t.Run("Should exit 130 on SIGINT", func(t *testing.T) {
		m := NewManager(time.Second)
		exited := make(chan int, 1)
		m.exit = func(code int) { exited <- code }

		_, stop := m.Watch(context.Background())
		defer stop()
		m.signals <- syscall.SIGINT

		select {
		case code := <-exited:
			assert.Equal(t, ExitInterrupt, code)
		case <-time.After(time.Second):
			t.Fatal("signal handler never exited")
		}
	})
}

func TestBackups(t *testing.T) {
	ctx := context.Background()

	t.Run("Should write a pretty dump readable only by the owner", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "backups")
		b := NewBackups(dir, false)

		path, err := b.Save(ctx, "update", "wf1", []byte(`{"name":"Intake","nodes":[]}`))
		require.NoError(t, err)
		assert.Contains(t, filepath.Base(path), "update-wf1-")

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		dirInfo, err := os.Stat(dir)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "\n")
		assert.Contains(t, string(raw), `"Intake"`)
	})

	t.Run("Should sanitize hostile workflow ids in filenames", func(t *testing.T) {
		b := NewBackups(t.TempDir(), false)
		path, err := b.Save(ctx, "delete", "../etc/passwd", []byte(`{}`))
		require.NoError(t, err)
		assert.NotContains(t, filepath.Base(path), "/")
		assert.Contains(t, filepath.Base(path), "delete-__etc_passwd-")
	})

	t.Run("Should warn and continue on failure outside strict mode", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "not-a-dir")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

		b := NewBackups(filepath.Join(file, "backups"), false)
		path, err := b.SaveBestEffort(ctx, "update", "wf1", []byte(`{}`))
		assert.NoError(t, err)
		assert.Empty(t, path)
	})

	t.Run("Should fail hard in strict mode", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "not-a-dir")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

		b := NewBackups(filepath.Join(file, "backups"), true)
		_, err := b.SaveBestEffort(ctx, "update", "wf1", []byte(`{}`))
		assert.Error(t, err)
	})
}
