package repository

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pngtuber-brain/internal/cache"
	"pngtuber-brain/internal/dblock"
	"pngtuber-brain/internal/pronouns"
)

type fakeLookup struct {
	mu      sync.Mutex
	results map[string]pronouns.Set
	calls   []string
}

func (f *fakeLookup) Lookup(_ context.Context, login string) (pronouns.Set, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, login)
	p, ok := f.results[login]
	return p, ok
}

func countPronounRows(t *testing.T, env *testEnv) int {
	t.Helper()
	var n int
	err := env.store.Do(context.Background(), func(ctx context.Context, db *sql.DB) error {
		return db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_pronouns`).Scan(&n)
	})
	require.NoError(t, err)
	return n
}

func TestPronoun_RemoteByDisplayNameIsPersisted(t *testing.T) {
	env := newTestEnv(t, 2*time.Second)
	remote := &fakeLookup{results: map[string]pronouns.Set{"alice": pronouns.SheHer}}
	repo := NewPronounRepository(env.cache, env.store, remote, nil)

	p := repo.Get(context.Background(), "twitch:100", "Alice")
	assert.Equal(t, pronouns.SheHer, p)
	assert.Equal(t, []string{"alice"}, remote.calls)
	assert.Equal(t, 1, countPronounRows(t, env))

	// warm cache: no further remote calls
	assert.Equal(t, pronouns.SheHer, repo.Get(context.Background(), "twitch:100", "Alice"))
	assert.Len(t, remote.calls, 1)
}

func TestPronoun_FallsBackToPlatformID(t *testing.T) {
	env := newTestEnv(t, 2*time.Second)
	remote := &fakeLookup{results: map[string]pronouns.Set{"100": pronouns.HeHim}}
	repo := NewPronounRepository(env.cache, env.store, remote, nil)

	p := repo.Get(context.Background(), "twitch:100", "Bob")
	assert.Equal(t, pronouns.HeHim, p)
	assert.Equal(t, []string{"bob", "100"}, remote.calls)
}

func TestPronoun_DefaultIsCachedNotPersisted(t *testing.T) {
	env := newTestEnv(t, 2*time.Second)
	repo := NewPronounRepository(env.cache, env.store, &fakeLookup{}, nil)

	p := repo.Get(context.Background(), "twitch:5", "nobody")
	assert.Equal(t, pronouns.Default, p)
	assert.True(t, env.cache.Exists("pronouns_twitch:5"))
	assert.Equal(t, 0, countPronounRows(t, env))
}

func TestPronoun_FreshStoreSkipsRemote(t *testing.T) {
	env := newTestEnv(t, 2*time.Second)
	seed := NewPronounRepository(cache.New(0), env.store, &fakeLookup{results: map[string]pronouns.Set{"x": pronouns.XeXem}}, nil)
	seed.Get(context.Background(), "twitch:7", "x")

	remote := &fakeLookup{results: map[string]pronouns.Set{"x": pronouns.HeHim}}
	repo := NewPronounRepository(env.cache, env.store, remote, nil)
	assert.Equal(t, pronouns.XeXem, repo.Get(context.Background(), "twitch:7", "x"))
	assert.Empty(t, remote.calls)
}

func TestPronoun_StaleStore(t *testing.T) {
	env := newTestEnv(t, 2*time.Second)
	seed := NewPronounRepository(cache.New(0), env.store, &fakeLookup{results: map[string]pronouns.Set{"x": pronouns.XeXem}}, nil)
	seed.now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }
	seed.Get(context.Background(), "twitch:7", "x")

	t.Run("remote wins over stale", func(t *testing.T) {
		remote := &fakeLookup{results: map[string]pronouns.Set{"x": pronouns.HeHim}}
		repo := NewPronounRepository(cache.New(0), env.store, remote, nil)
		assert.Equal(t, pronouns.HeHim, repo.Get(context.Background(), "twitch:7", "x"))
		assert.NotEmpty(t, remote.calls)
	})

	t.Run("stale used when remote fails", func(t *testing.T) {
		env2 := newTestEnv(t, 2*time.Second)
		old := NewPronounRepository(cache.New(0), env2.store, &fakeLookup{results: map[string]pronouns.Set{"x": pronouns.XeXem}}, nil)
		old.now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }
		old.Get(context.Background(), "twitch:7", "x")

		repo := NewPronounRepository(cache.New(0), env2.store, &fakeLookup{}, nil)
		assert.Equal(t, pronouns.XeXem, repo.Get(context.Background(), "twitch:7", "x"))
	})
}

func TestPronoun_LockHeldReturnsDefault(t *testing.T) {
	timeout := 300 * time.Millisecond
	env := newTestEnv(t, timeout)
	repo := NewPronounRepository(env.cache, env.store, nil, nil)

	holder := dblock.New(env.lockDir, env.lockName, nil)
	require.True(t, holder.Acquire(context.Background(), time.Second))
	defer holder.Release()

	start := time.Now()
	p := repo.Get(context.Background(), "twitch:1", "someone")
	assert.Equal(t, pronouns.Default, p)
	assert.Less(t, time.Since(start), timeout+500*time.Millisecond)
}

func TestLookupLogins(t *testing.T) {
	assert.Equal(t, []string{"alice", "42"}, lookupLogins("twitch:42", "Alice"))
	assert.Equal(t, []string{"42"}, lookupLogins("twitch:42", ""))
	assert.Equal(t, []string{"bob"}, lookupLogins("bob", "Bob"))
	assert.Empty(t, lookupLogins("", ""))
}
