package pipeline

import (
	"context"
	"strings"
	"sync"

	"pngtuber-brain/internal/llm"
	"pngtuber-brain/internal/pronouns"
	"pngtuber-brain/internal/repository"
)

type memNicknames struct {
	mu    sync.Mutex
	nicks map[string]*string
}

func newMemNicknames() *memNicknames { return &memNicknames{nicks: map[string]*string{}} }

func (m *memNicknames) Get(_ context.Context, userID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nicks[userID]
	if !ok || n == nil {
		return "", false
	}
	return *n, true
}

func (m *memNicknames) Set(_ context.Context, userID string, nickname *string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nicks[userID] = nickname
}

type fixedPronouns struct{ set pronouns.Set }

func (f fixedPronouns) Get(context.Context, string, string) pronouns.Set { return f.set }

type memFacts struct {
	mu    sync.Mutex
	facts map[string]repository.Fact
}

func newMemFacts() *memFacts { return &memFacts{facts: map[string]repository.Fact{}} }

func (m *memFacts) AddFact(_ context.Context, key, content, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := repository.NormalizeKey(key)
	m.facts[k] = repository.Fact{Key: k, Content: content, CreatedBy: userID}
}

func (m *memFacts) RemoveFact(_ context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := repository.NormalizeKey(key)
	_, ok := m.facts[k]
	delete(m.facts, k)
	return ok
}

func (m *memFacts) SearchFacts(_ context.Context, key string) []repository.Fact {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.facts[repository.NormalizeKey(key)]; ok {
		return []repository.Fact{f}
	}
	return nil
}

func (m *memFacts) GetAllFacts(context.Context) []repository.Fact {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repository.Fact, 0, len(m.facts))
	for _, f := range m.facts {
		out = append(out, f)
	}
	return out
}

type memArchive struct {
	mu   sync.Mutex
	msgs []repository.ChatMessage
}

func (m *memArchive) Add(_ context.Context, msg repository.ChatMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
}

func (m *memArchive) all() []repository.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]repository.ChatMessage(nil), m.msgs...)
}

type recordingOutput struct {
	mu   sync.Mutex
	said []string
}

func (r *recordingOutput) Say(_ context.Context, _ RequestContext, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.said = append(r.said, text)
}

func (r *recordingOutput) lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.said...)
}

type fakeLLM struct {
	resp llm.Response
	err  error
	got  [][]llm.Message
}

func (f *fakeLLM) Generate(_ context.Context, msgs []llm.Message) (llm.Response, error) {
	f.got = append(f.got, msgs)
	return f.resp, f.err
}

func (f *fakeLLM) lastSystem() string {
	if len(f.got) == 0 {
		return ""
	}
	for _, m := range f.got[len(f.got)-1] {
		if m.Role == "system" {
			return m.Content
		}
	}
	return ""
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
