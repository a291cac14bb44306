package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pngtuber-brain/internal/cache"
	"pngtuber-brain/internal/storage"
)

type testEnv struct {
	store    *storage.Store
	cache    *cache.Cache
	lockDir  string
	lockName string
}

func newTestEnv(t *testing.T, lockTimeout time.Duration) *testEnv {
	t.Helper()
	dir := t.TempDir()
	name := "repo-" + filepath.Base(dir)
	s := storage.New(storage.Options{
		Path:        filepath.Join(dir, "PNGTuber-GPT", "pngtuber.db"),
		LockDir:     dir,
		LockName:    name,
		LockTimeout: lockTimeout,
	})
	require.NoError(t, s.Bootstrap(context.Background(), 5*time.Second))
	c := cache.New(0)
	t.Cleanup(c.Close)
	return &testEnv{store: s, cache: c, lockDir: dir, lockName: name}
}

func strPtr(s string) *string { return &s }
