package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakePruner struct{ cutoff time.Time }

func (f *fakePruner) PruneBefore(_ context.Context, cutoff time.Time) int64 {
	f.cutoff = cutoff
	return 4
}

type fakeRefresher struct{ calls atomic.Int32 }

func (f *fakeRefresher) Refresh(context.Context) int {
	f.calls.Add(1)
	return 2
}

type pruneCount struct{ n int64 }

func (p *pruneCount) ObservePruned(n int64) { p.n += n }

func TestAddAndRunNow(t *testing.T) {
	s := New(nil)
	defer s.Stop()

	var ran atomic.Int32
	require.NoError(t, s.Add("tick", "@every 1h", func(context.Context) error {
		ran.Add(1)
		return nil
	}))
	require.NoError(t, s.RunNow("tick"))
	assert.Equal(t, int32(1), ran.Load())
	assert.Equal(t, map[string]string{"tick": "@every 1h"}, s.Jobs())

	assert.Error(t, s.Add("tick", "@every 1h", nil), "duplicate name")
	assert.Error(t, s.Add("bad", "not a spec", nil))
	assert.Error(t, s.RunNow("missing"))
}

func TestRunNowReturnsJobError(t *testing.T) {
	s := New(nil)
	defer s.Stop()
	boom := errors.New("boom")
	require.NoError(t, s.Add("fail", "0 4 * * *", func(context.Context) error { return boom }))
	assert.ErrorIs(t, s.RunNow("fail"), boom)
}

func TestStartStop(t *testing.T) {
	s := New(nil)
	var ran atomic.Int32
	require.NoError(t, s.Add("fast", "@every 1s", func(context.Context) error {
		ran.Add(1)
		return nil
	}))
	s.Start()
	s.Start()
	assert.True(t, s.IsRunning())
	require.Eventually(t, func() bool { return ran.Load() > 0 }, 3*time.Second, 20*time.Millisecond)
	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestChatRetention(t *testing.T) {
	now := time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)
	p := &fakePruner{}
	obs := &pruneCount{}
	job := chatRetention(p, 720*time.Hour, obs, nil, func() time.Time { return now })

	require.NoError(t, job(context.Background()))
	assert.True(t, p.cutoff.Equal(now.Add(-720*time.Hour)))
	assert.Equal(t, int64(4), obs.n)

}

func TestChatRetention_DisabledSkipsPrune(t *testing.T) {
	for _, retention := range []time.Duration{0, -time.Hour} {
		p := &fakePruner{}
		obs := &pruneCount{}
		require.NoError(t, chatRetention(p, retention, obs, nil, time.Now)(context.Background()))
		assert.True(t, p.cutoff.IsZero(), "retention %s must not prune", retention)
		assert.Zero(t, obs.n)
	}
}

func TestKnowledgeRefresh(t *testing.T) {
	r := &fakeRefresher{}
	require.NoError(t, KnowledgeRefresh(r, nil)(context.Background()))
	assert.Equal(t, int32(1), r.calls.Load())
}
