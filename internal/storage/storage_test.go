package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pngtuber-brain/internal/dblock"
)

type waitRecorder struct {
	mu       sync.Mutex
	acquired int
	timeouts int
}

func (w *waitRecorder) ObserveLockWait(_ time.Duration, acquired bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if acquired {
		w.acquired++
	} else {
		w.timeouts++
	}
}

func newTestStore(t *testing.T, rec LockObserver) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s := New(Options{
		Path:        filepath.Join(dir, "PNGTuber-GPT", "pngtuber.db"),
		LockDir:     dir,
		LockName:    "test-" + filepath.Base(dir),
		LockTimeout: 300 * time.Millisecond,
		Observer:    rec,
	})
	return s, dir
}

func TestBootstrap_CreatesSchemaAndSeedsSettings(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()
	require.NoError(t, s.Bootstrap(ctx, time.Second))

	_, err := os.Stat(s.Path())
	require.NoError(t, err)

	got, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), got)

	var n int
	err = s.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		return db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN
			('settings','user_nicknames','user_pronouns','knowledge_base','chat_logs')`).Scan(&n)
	})
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestBootstrap_KeepsExistingSettings(t *testing.T) {
	s, _ := newTestStore(t, nil)
	ctx := context.Background()
	require.NoError(t, s.Bootstrap(ctx, time.Second))

	err := s.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, `UPDATE settings SET data = ? WHERE id = ?`,
			`{"logging_level":"DEBUG","version":"9.9.9","max_chat_history":5}`, SettingsID)
		return err
	})
	require.NoError(t, err)

	require.NoError(t, s.Bootstrap(ctx, time.Second))
	got, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", got.LoggingLevel)
	assert.Equal(t, "9.9.9", got.Version)
	assert.Equal(t, 5, got.MaxChatHistory)
}

func TestDo_LockTimeout(t *testing.T) {
	rec := &waitRecorder{}
	s, dir := newTestStore(t, rec)
	require.NoError(t, s.Bootstrap(context.Background(), time.Second))

	holder := dblock.New(dir, s.lockName, nil)
	require.True(t, holder.Acquire(context.Background(), time.Second))
	defer holder.Release()

	called := false
	start := time.Now()
	err := s.Do(context.Background(), func(context.Context, *sql.DB) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, called)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, rec.timeouts)
}

func TestBootstrap_FailsOnUnusablePath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	s := New(Options{Path: filepath.Join(blocker, "sub", "pngtuber.db"), LockDir: dir, LockName: "bad"})
	assert.Error(t, s.Bootstrap(context.Background(), time.Second))
}
