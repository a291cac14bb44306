package knowledgemcp

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pngtuber-brain/internal/repository"
)

type memFacts struct {
	mu    sync.Mutex
	facts map[string]repository.Fact
}

func (m *memFacts) AddFact(_ context.Context, key, content, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := repository.NormalizeKey(key)
	m.facts[k] = repository.Fact{Key: k, Content: content, CreatedBy: userID}
}

func (m *memFacts) RemoveFact(_ context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.facts[key]
	delete(m.facts, key)
	return ok
}

func (m *memFacts) SearchFacts(_ context.Context, key string) []repository.Fact {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.facts[key]; ok {
		return []repository.Fact{f}
	}
	return nil
}

func (m *memFacts) GetAllFacts(context.Context) []repository.Fact {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.Fact
	for _, f := range m.facts {
		out = append(out, f)
	}
	return out
}

type memChat []repository.ChatMessage

func (c memChat) GetRecent(_ context.Context, n int) []repository.ChatMessage {
	return c[:min(n, len(c))]
}

func text(t *testing.T, res *mcp.CallToolResultFor[any]) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func newServer(chat memChat) *Server {
	return New(&memFacts{facts: map[string]repository.Fact{}}, chat, nil)
}

func TestTeachSearchForget(t *testing.T) {
	s := newServer(nil)
	ctx := context.Background()

	res, err := s.TeachFact(ctx, nil, &mcp.CallToolParamsFor[TeachFactParams]{
		Arguments: TeachFactParams{Key: " Rust ", Content: "Rust is a systems programming language."},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "Memorized: rust", text(t, res))

	res, err = s.SearchFacts(ctx, nil, &mcp.CallToolParamsFor[SearchFactsParams]{Arguments: SearchFactsParams{Key: "RUST"}})
	require.NoError(t, err)
	assert.Equal(t, "rust: Rust is a systems programming language.", text(t, res))
	assert.Equal(t, "mcp", res.Meta["created_by"])

	res, _ = s.ForgetFact(ctx, nil, &mcp.CallToolParamsFor[ForgetFactParams]{Arguments: ForgetFactParams{Key: "rust"}})
	assert.Equal(t, "Forgot: rust", text(t, res))
	res, _ = s.ForgetFact(ctx, nil, &mcp.CallToolParamsFor[ForgetFactParams]{Arguments: ForgetFactParams{Key: "rust"}})
	assert.Equal(t, false, res.Meta["removed"])

	res, _ = s.SearchFacts(ctx, nil, &mcp.CallToolParamsFor[SearchFactsParams]{Arguments: SearchFactsParams{Key: "rust"}})
	assert.Equal(t, false, res.Meta["found"])
}

func TestValidation(t *testing.T) {
	s := newServer(nil)
	ctx := context.Background()

	res, _ := s.TeachFact(ctx, nil, &mcp.CallToolParamsFor[TeachFactParams]{Arguments: TeachFactParams{Key: "go"}})
	assert.True(t, res.IsError)
	res, _ = s.SearchFacts(ctx, nil, &mcp.CallToolParamsFor[SearchFactsParams]{})
	assert.True(t, res.IsError)
	res, _ = s.ForgetFact(ctx, nil, &mcp.CallToolParamsFor[ForgetFactParams]{})
	assert.True(t, res.IsError)
}

func TestListFacts(t *testing.T) {
	s := newServer(nil)
	ctx := context.Background()
	for _, k := range []string{"rust", "rustacean", "go"} {
		s.TeachFact(ctx, nil, &mcp.CallToolParamsFor[TeachFactParams]{Arguments: TeachFactParams{Key: k, Content: "about " + k}})
	}

	res, _ := s.ListFacts(ctx, nil, &mcp.CallToolParamsFor[ListFactsParams]{})
	assert.Equal(t, 3, res.Meta["count"])
	res, _ = s.ListFacts(ctx, nil, &mcp.CallToolParamsFor[ListFactsParams]{Arguments: ListFactsParams{Contains: "RUST"}})
	assert.Equal(t, 2, res.Meta["count"])
	assert.NotContains(t, text(t, res), "about go")
	res, _ = s.ListFacts(ctx, nil, &mcp.CallToolParamsFor[ListFactsParams]{Arguments: ListFactsParams{Contains: "zig"}})
	assert.Equal(t, "No facts found", text(t, res))
}

func TestRecentChat(t *testing.T) {
	ts := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	var chat memChat
	for i := 0; i < 30; i++ {
		chat = append(chat, repository.ChatMessage{FullText: "Alice said hi", Timestamp: ts})
	}
	s := newServer(chat)

	res, _ := s.RecentChat(context.Background(), nil, &mcp.CallToolParamsFor[RecentChatParams]{})
	assert.Equal(t, defaultRecent, res.Meta["count"])
	assert.True(t, strings.HasPrefix(text(t, res), "[2026-05-01 12:00:00] Alice said hi"))

	res, _ = s.RecentChat(context.Background(), nil, &mcp.CallToolParamsFor[RecentChatParams]{Arguments: RecentChatParams{Count: 5}})
	assert.Equal(t, 5, res.Meta["count"])

	empty := newServer(nil)
	res, _ = empty.RecentChat(context.Background(), nil, &mcp.CallToolParamsFor[RecentChatParams]{})
	assert.Equal(t, "No chat messages archived", text(t, res))
}

func TestNewMCPServerRegistersTools(t *testing.T) {
	assert.NotNil(t, NewMCPServer(newServer(nil), "test"))
}
