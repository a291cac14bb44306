package history

import (
	"sync"

	"pngtuber-brain/internal/llm"
)

// Manager keeps the recent ask/answer exchanges per user, used as prompt
// context for the assistant. Only the newest maxExchanges pairs are kept.
type Manager struct {
	mu           sync.RWMutex
	sessions     map[string][]llm.Message
	maxExchanges int
}

func NewManager(maxExchanges int) *Manager {
	if maxExchanges <= 0 {
		maxExchanges = 10
	}
	return &Manager{sessions: make(map[string][]llm.Message), maxExchanges: maxExchanges}
}

func (m *Manager) Reset(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// ResetAll forgets every user's history.
func (m *Manager) ResetAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = make(map[string][]llm.Message)
}

// AppendExchange records one question and its answer.
func (m *Manager) AppendExchange(userID, question, answer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := append(m.sessions[userID],
		llm.Message{Role: "user", Content: question},
		llm.Message{Role: "assistant", Content: answer},
	)
	if limit := 2 * m.maxExchanges; len(msgs) > limit {
		msgs = append([]llm.Message(nil), msgs[len(msgs)-limit:]...)
	}
	m.sessions[userID] = msgs
}

func (m *Manager) Get(userID string) []llm.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	es := m.sessions[userID]
	out := make([]llm.Message, len(es))
	copy(out, es)
	return out
}
