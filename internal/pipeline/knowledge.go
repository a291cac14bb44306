package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"pngtuber-brain/internal/logging"
)

// KnowledgeScanner injects the content of every fact whose key occurs in
// the message. Matching is plain substring containment, so a key like "he"
// also matches "hello".
type KnowledgeScanner struct {
	facts  FactStore
	next   *IDQueue
	logger *zap.Logger
}

func NewKnowledgeScanner(f FactStore, next *IDQueue, logger *zap.Logger) *KnowledgeScanner {
	return &KnowledgeScanner{facts: f, next: next, logger: logging.OrNop(logger)}
}

func (*KnowledgeScanner) Name() string { return "knowledge" }

func (s *KnowledgeScanner) Handle(ctx context.Context, rc *RequestContext) (Result, error) {
	if rc.CleanedMessage == "" {
		return forward(false, s.next), nil
	}
	msg := strings.ToLower(rc.CleanedMessage)
	matched := 0
	for _, f := range s.facts.GetAllFacts(ctx) {
		if f.Key != "" && strings.Contains(msg, f.Key) {
			rc.InjectedFacts = append(rc.InjectedFacts, f.Content)
			matched++
		}
	}
	if matched > 0 {
		s.logger.Debug("facts injected", zap.String("request_id", rc.ID), zap.Int("count", matched))
	}
	return forward(matched > 0, s.next), nil
}
