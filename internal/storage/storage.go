// Package storage is the persistent store: one SQLite file opened for the
// duration of a single operation, always under the cross-process lock.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"pngtuber-brain/internal/dblock"
	"pngtuber-brain/internal/logging"
)

// ErrLockTimeout is returned when the database lock could not be acquired in time.
var ErrLockTimeout = errors.New("storage: database lock timeout")

// LockObserver receives lock wait measurements.
type LockObserver interface {
	ObserveLockWait(wait time.Duration, acquired bool)
}

type Options struct {
	Path        string
	LockDir     string
	LockName    string
	LockTimeout time.Duration
	Logger      *zap.Logger
	Observer    LockObserver
}

type Store struct {
	path        string
	lockDir     string
	lockName    string
	lockTimeout time.Duration
	logger      *zap.Logger
	observer    LockObserver
}

func New(opts Options) *Store {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 2 * time.Second
	}
	if opts.LockDir == "" {
		opts.LockDir = os.TempDir()
	}
	if opts.LockName == "" {
		opts.LockName = "pngtuber-brain-db"
	}
	return &Store{
		path:        opts.Path,
		lockDir:     opts.LockDir,
		lockName:    opts.LockName,
		lockTimeout: opts.LockTimeout,
		logger:      logging.OrNop(opts.Logger).Named("storage"),
		observer:    opts.Observer,
	}
}

func (s *Store) Path() string { return s.path }

// Do runs fn against a freshly opened database while holding the lock.
// The connection is closed and the lock released before Do returns.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, db *sql.DB) error) error {
	return s.do(ctx, s.lockTimeout, fn)
}

func (s *Store) do(ctx context.Context, timeout time.Duration, fn func(ctx context.Context, db *sql.DB) error) error {
	m := dblock.New(s.lockDir, s.lockName, s.logger)
	start := time.Now()
	acquired := m.Acquire(ctx, timeout)
	if s.observer != nil {
		s.observer.ObserveLockWait(time.Since(start), acquired)
	}
	if !acquired {
		return ErrLockTimeout
	}
	defer m.Release()

	db, err := sql.Open("sqlite", dsn(s.path))
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			s.logger.Warn("close db", zap.Error(err))
		}
	}()
	db.SetMaxOpenConns(1)

	return fn(ctx, db)
}

// Bootstrap creates the database directory, schema and seed rows. It is
// called once before any repository is used; its error is fatal to startup.
func (s *Store) Bootstrap(ctx context.Context, timeout time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("ensure db dir: %w", err)
	}
	err := s.do(ctx, timeout, func(ctx context.Context, db *sql.DB) error {
		if err := migrate(ctx, db); err != nil {
			return err
		}
		return seedSettings(ctx, db)
	})
	if err != nil {
		return fmt.Errorf("bootstrap %s: %w", s.path, err)
	}
	s.logger.Info("database ready", zap.String("path", s.path))
	return nil
}

func dsn(path string) string {
	return "file:" + filepath.ToSlash(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(DELETE)"
}
