package history

import (
	"sync"
	"time"

	"pngtuber-brain/internal/cache"
)

const (
	DefaultTranscriptSize = 20
	TranscriptCacheKey    = "chat_history"
	transcriptCacheTTL    = 24 * time.Hour
)

// Transcript is the rolling FIFO of formatted chat lines. Every change is
// mirrored into the cache under TranscriptCacheKey.
type Transcript struct {
	mu    sync.Mutex
	lines []string
	max   int
	cache *cache.Cache
}

// NewTranscript creates a buffer holding at most max lines. c may be nil.
func NewTranscript(max int, c *cache.Cache) *Transcript {
	if max <= 0 {
		max = DefaultTranscriptSize
	}
	return &Transcript{max: max, cache: c}
}

func (t *Transcript) Add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if over := len(t.lines) - t.max; over > 0 {
		t.lines = append([]string(nil), t.lines[over:]...)
	}
	t.mirror()
}

// Lines returns a copy, oldest first.
func (t *Transcript) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}

func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lines)
}

func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = nil
	if t.cache != nil {
		t.cache.Remove(TranscriptCacheKey)
	}
}

func (t *Transcript) mirror() {
	if t.cache == nil {
		return
	}
	snapshot := make([]string, len(t.lines))
	copy(snapshot, t.lines)
	t.cache.Set(TranscriptCacheKey, snapshot, transcriptCacheTTL)
}
