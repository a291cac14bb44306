package history

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pngtuber-brain/internal/cache"
)

func TestTranscript_KeepsMostRecent20(t *testing.T) {
	c := cache.New(0)
	tr := NewTranscript(20, c)
	for i := 0; i < 25; i++ {
		tr.Add(fmt.Sprintf("Msg %d", i))
	}

	lines := tr.Lines()
	require.Len(t, lines, 20)
	for i, l := range lines {
		assert.Equal(t, fmt.Sprintf("Msg %d", i+5), l)
	}

	mirrored, ok := cache.Get[[]string](c, TranscriptCacheKey)
	require.True(t, ok)
	assert.Equal(t, lines, mirrored)
}

func TestTranscript_ConcurrentWriters(t *testing.T) {
	tr := NewTranscript(20, cache.New(0))
	var wg sync.WaitGroup
	for g := 0; g < 50; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				tr.Add(fmt.Sprintf("g%d-%d", g, i))
			}
		}(g)
	}
	wg.Wait()

	lines := tr.Lines()
	assert.Len(t, lines, 20)
	for _, l := range lines {
		assert.NotEmpty(t, l)
	}
}

func TestTranscript_Clear(t *testing.T) {
	c := cache.New(0)
	tr := NewTranscript(0, c)
	tr.Add("one")
	tr.Clear()
	assert.Zero(t, tr.Len())
	assert.False(t, c.Exists(TranscriptCacheKey))
}
