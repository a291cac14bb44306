package pipeline

import (
	"context"

	"go.uber.org/zap"

	"pngtuber-brain/internal/pronouns"
	"pngtuber-brain/internal/repository"
)

// Repository views used by the stages. The concrete types live in
// internal/repository.

type NicknameStore interface {
	Get(ctx context.Context, userID string) (string, bool)
	Set(ctx context.Context, userID string, nickname *string)
}

type PronounResolver interface {
	Get(ctx context.Context, userID, displayName string) pronouns.Set
}

type FactStore interface {
	AddFact(ctx context.Context, key, content, userID string)
	RemoveFact(ctx context.Context, key string) bool
	SearchFacts(ctx context.Context, key string) []repository.Fact
	GetAllFacts(ctx context.Context) []repository.Fact
}

type ChatArchive interface {
	Add(ctx context.Context, m repository.ChatMessage)
}

var (
	_ NicknameStore   = (*repository.NicknameRepository)(nil)
	_ PronounResolver = (*repository.PronounRepository)(nil)
	_ FactStore       = (*repository.KnowledgeRepository)(nil)
	_ ChatArchive     = (*repository.ChatMessageRepository)(nil)
)

// Output is the host boundary that receives bot replies.
type Output interface {
	Say(ctx context.Context, rc RequestContext, text string)
}

// LogOutput writes replies to the log only.
type LogOutput struct {
	Logger *zap.Logger
}

func (o LogOutput) Say(_ context.Context, rc RequestContext, text string) {
	if o.Logger == nil {
		return
	}
	o.Logger.Info("[BOT SAYS]: "+text, zap.String("request_id", rc.ID))
}

// MultiOutput fans a reply out to several outputs.
type MultiOutput []Output

func (m MultiOutput) Say(ctx context.Context, rc RequestContext, text string) {
	for _, o := range m {
		o.Say(ctx, rc, text)
	}
}
