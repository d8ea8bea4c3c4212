// Package lifecycle owns process shutdown: signal handling with an
// ordered, deadline-bound cleanup pass, and the pre-mutation backup
// service commands call before touching server state.
package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/n8n-cli/n8nctl/pkg/logger"
)

// POSIX exit codes for termination by signal.
const (
	ExitInterrupt  = 130
	ExitTerminated = 143
)

// DefaultCleanupTimeout bounds how long shutdown cleanup may run.
const DefaultCleanupTimeout = 5 * time.Second

type cleanup struct {
	name string
	fn   func(ctx context.Context) error
}

// Manager cancels the root context on SIGINT or SIGTERM and runs
// registered cleanups in reverse registration order under a deadline.
type Manager struct {
	mu       sync.Mutex
	cleanups []cleanup
	timeout  time.Duration
	exit     func(int)
	signals  chan os.Signal
}

// NewManager builds a manager with the given cleanup deadline. A
// non-positive timeout falls back to the default.
func NewManager(timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultCleanupTimeout
	}
	return &Manager{
		timeout: timeout,
		exit:    os.Exit,
		signals: make(chan os.Signal, 2),
	}
}

// OnShutdown registers a cleanup step. Steps run last-registered first,
// mirroring defer.
func (m *Manager) OnShutdown(name string, fn func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanups = append(m.cleanups, cleanup{name: name, fn: fn})
}

// Watch derives a context cancelled on SIGINT or SIGTERM and starts the
// signal goroutine. SIGPIPE is ignored so piping to head does not kill
// the process. The returned stop releases the signal handler.
func (m *Manager) Watch(parent context.Context) (context.Context, context.CancelFunc) {
	signal.Ignore(syscall.SIGPIPE)
	signal.Notify(m.signals, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case sig := <-m.signals:
			log := logger.FromContext(parent)
			log.Debug("signal received, shutting down", "signal", sig.String())
			cancel()
			m.Cleanup(context.WithoutCancel(parent))
			m.exit(exitCodeFor(sig))
		case <-ctx.Done():
		}
	}()

	stop := func() {
		signal.Stop(m.signals)
		cancel()
	}
	return ctx, stop
}

// Cleanup runs every registered step under the manager's deadline. A
// second signal or an exceeded deadline abandons the remaining steps.
func (m *Manager) Cleanup(ctx context.Context) {
	m.mu.Lock()
	steps := make([]cleanup, len(m.cleanups))
	copy(steps, m.cleanups)
	m.mu.Unlock()

	log := logger.FromContext(ctx)
	deadline, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := len(steps) - 1; i >= 0; i-- {
			if deadline.Err() != nil {
				return
			}
			if err := steps[i].fn(deadline); err != nil {
				log.Warn("cleanup step failed", "step", steps[i].name, "error", err)
			}
		}
	}()

	select {
	case <-done:
	case <-deadline.Done():
		log.Warn("cleanup deadline exceeded, terminating", "timeout", m.timeout)
	case <-m.signals:
		log.Warn("second signal received, terminating immediately")
	}
}

func exitCodeFor(sig os.Signal) int {
	if sig == syscall.SIGTERM {
		return ExitTerminated
	}
	return ExitInterrupt
}
