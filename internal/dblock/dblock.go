// Package dblock provides the named lock that serializes access to the
// database file across goroutines and across processes on the same host.
package dblock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"pngtuber-brain/internal/logging"
)

const pollInterval = 25 * time.Millisecond

// Mutex is a single-use handle on a named lock. Create one per
// open/use/close cycle; it is not safe for concurrent use.
type Mutex struct {
	name   string
	path   string
	owner  string
	logger *zap.Logger

	fl   *flock.Flock
	held bool
}

// New returns a handle on the lock called name inside dir. Every
// process using the same dir and name contends for the same lock.
func New(dir, name string, logger *zap.Logger) *Mutex {
	base := filepath.Join(dir, name)
	return &Mutex{
		name:   name,
		path:   base + ".lock",
		owner:  base + ".owner",
		logger: logging.OrNop(logger),
	}
}

func (m *Mutex) Name() string { return m.name }

// Acquire waits up to timeout for the lock. It returns false on timeout or
// cancellation; callers skip the operation in that case.
func (m *Mutex) Acquire(ctx context.Context, timeout time.Duration) bool {
	if m.held {
		return true
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		m.logger.Error("lock dir unavailable", zap.String("lock", m.name), zap.Error(err))
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fl := flock.New(m.path)
	ok, err := fl.TryLockContext(ctx, pollInterval)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		m.logger.Error("lock acquire failed", zap.String("lock", m.name), zap.Error(err))
		return false
	}
	if !ok {
		m.logger.Debug("lock acquire timed out", zap.String("lock", m.name), zap.Duration("timeout", timeout))
		return false
	}

	m.fl = fl
	m.held = true

	// A leftover owner marker means the previous holder never released.
	if prev, err := os.ReadFile(m.owner); err == nil {
		m.logger.Warn("lock was abandoned by previous holder, data may be inconsistent",
			zap.String("lock", m.name), zap.ByteString("previous_owner", prev))
	}
	marker := fmt.Sprintf("%d %s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339Nano))
	if err := os.WriteFile(m.owner, []byte(marker), 0o644); err != nil {
		m.logger.Warn("lock owner marker not written", zap.String("lock", m.name), zap.Error(err))
	}
	return true
}

// Release gives the lock up. It is a no-op when the lock is not held.
func (m *Mutex) Release() {
	if !m.held {
		return
	}
	if err := os.Remove(m.owner); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.logger.Warn("lock owner marker not removed", zap.String("lock", m.name), zap.Error(err))
	}
	if err := m.fl.Unlock(); err != nil {
		m.logger.Error("lock release failed", zap.String("lock", m.name), zap.Error(err))
	}
	m.fl = nil
	m.held = false
}

// Held reports whether this handle currently owns the lock.
func (m *Mutex) Held() bool { return m.held }
