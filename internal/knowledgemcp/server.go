// Package knowledgemcp exposes the knowledge base and chat archive as MCP tools.
package knowledgemcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"pngtuber-brain/internal/logging"
	"pngtuber-brain/internal/repository"
)

const (
	defaultRecent = 20
	maxRecent     = 200
	mcpAuthor     = "mcp"
)

type FactStore interface {
	AddFact(ctx context.Context, key, content, userID string)
	RemoveFact(ctx context.Context, key string) bool
	SearchFacts(ctx context.Context, key string) []repository.Fact
	GetAllFacts(ctx context.Context) []repository.Fact
}

type ChatReader interface {
	GetRecent(ctx context.Context, count int) []repository.ChatMessage
}

type SearchFactsParams struct {
	Key string `json:"key" mcp:"fact key to look up (case-insensitive)"`
}

type ListFactsParams struct {
	Contains string `json:"contains,omitempty" mcp:"only return facts whose key contains this text"`
}

type TeachFactParams struct {
	Key       string `json:"key" mcp:"fact key, a single word such as 'rust'"`
	Content   string `json:"content" mcp:"what the bot should know about the key"`
	CreatedBy string `json:"created_by,omitempty" mcp:"author recorded with the fact (default: mcp)"`
}

type ForgetFactParams struct {
	Key string `json:"key" mcp:"fact key to delete"`
}

type RecentChatParams struct {
	Count int `json:"count,omitempty" mcp:"number of messages to return (default: 20, max: 200)"`
}

// Server holds the tool handlers.
type Server struct {
	facts  FactStore
	chat   ChatReader
	logger *zap.Logger
}

func New(facts FactStore, chat ChatReader, logger *zap.Logger) *Server {
	return &Server{facts: facts, chat: chat, logger: logging.OrNop(logger).Named("mcp")}
}

// NewMCPServer builds an MCP server with every tool registered.
func NewMCPServer(s *Server, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "pngtuber-brain-knowledge",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_facts",
		Description: "Looks up a stored fact by its exact key",
	}, s.SearchFacts)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_facts",
		Description: "Lists every fact the bot knows, optionally filtered by key",
	}, s.ListFacts)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "teach_fact",
		Description: "Stores or replaces a fact; chat messages containing the key get it injected",
	}, s.TeachFact)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "forget_fact",
		Description: "Deletes a fact by key",
	}, s.ForgetFact)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "recent_chat",
		Description: "Returns the most recent archived chat messages, newest first",
	}, s.RecentChat)
	return server
}

func textResult(text string, meta map[string]any) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		Meta:    meta,
	}
}

func errorResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func (s *Server) SearchFacts(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[SearchFactsParams]) (*mcp.CallToolResultFor[any], error) {
	key := repository.NormalizeKey(params.Arguments.Key)
	if key == "" {
		return errorResult("key is required"), nil
	}
	facts := s.facts.SearchFacts(ctx, key)
	if len(facts) == 0 {
		return textResult(fmt.Sprintf("No fact stored for %q", key), map[string]any{"found": false}), nil
	}
	f := facts[0]
	return textResult(fmt.Sprintf("%s: %s", f.Key, f.Content), map[string]any{
		"found":      true,
		"key":        f.Key,
		"created_by": f.CreatedBy,
	}), nil
}

func (s *Server) ListFacts(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ListFactsParams]) (*mcp.CallToolResultFor[any], error) {
	filter := repository.NormalizeKey(params.Arguments.Contains)
	var b strings.Builder
	n := 0
	for _, f := range s.facts.GetAllFacts(ctx) {
		if filter != "" && !strings.Contains(f.Key, filter) {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", f.Key, f.Content)
		n++
	}
	if n == 0 {
		return textResult("No facts found", map[string]any{"count": 0}), nil
	}
	return textResult(fmt.Sprintf("%d fact(s):\n%s", n, b.String()), map[string]any{"count": n}), nil
}

func (s *Server) TeachFact(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[TeachFactParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	key := repository.NormalizeKey(args.Key)
	content := strings.TrimSpace(args.Content)
	if key == "" || content == "" {
		return errorResult("key and content are required"), nil
	}
	author := strings.TrimSpace(args.CreatedBy)
	if author == "" {
		author = mcpAuthor
	}
	s.facts.AddFact(ctx, key, content, author)
	s.logger.Info("fact taught", zap.String("key", key), zap.String("created_by", author))
	return textResult("Memorized: "+key, map[string]any{"key": key}), nil
}

func (s *Server) ForgetFact(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ForgetFactParams]) (*mcp.CallToolResultFor[any], error) {
	key := repository.NormalizeKey(params.Arguments.Key)
	if key == "" {
		return errorResult("key is required"), nil
	}
	removed := s.facts.RemoveFact(ctx, key)
	s.logger.Info("fact forgotten", zap.String("key", key), zap.Bool("removed", removed))
	if !removed {
		return textResult(fmt.Sprintf("No fact stored for %q", key), map[string]any{"removed": false}), nil
	}
	return textResult("Forgot: "+key, map[string]any{"removed": true}), nil
}

func (s *Server) RecentChat(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[RecentChatParams]) (*mcp.CallToolResultFor[any], error) {
	count := params.Arguments.Count
	if count <= 0 {
		count = defaultRecent
	}
	count = min(count, maxRecent)
	msgs := s.chat.GetRecent(ctx, count)
	if len(msgs) == 0 {
		return textResult("No chat messages archived", map[string]any{"count": 0}), nil
	}
	var b strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&b, "[%s] %s\n", m.Timestamp.UTC().Format("2006-01-02 15:04:05"), m.FullText)
	}
	return textResult(b.String(), map[string]any{"count": len(msgs)}), nil
}
