package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"pngtuber-brain/internal/logging"
)

const (
	JobChatRetention    = "chat-retention"
	JobKnowledgeRefresh = "knowledge-refresh"

	KnowledgeRefreshSpec = "@every 30m"
)

type ChatPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) int64
}

type KnowledgeRefresher interface {
	Refresh(ctx context.Context) int
}

type PruneObserver interface {
	ObservePruned(n int64)
}

// ChatRetention deletes chat logs older than retention. A retention of zero
// or less disables pruning.
func ChatRetention(chat ChatPruner, retention time.Duration, obs PruneObserver, logger *zap.Logger) Job {
	return chatRetention(chat, retention, obs, logger, time.Now)
}

func chatRetention(chat ChatPruner, retention time.Duration, obs PruneObserver, logger *zap.Logger, now func() time.Time) Job {
	logger = logging.OrNop(logger)
	return func(ctx context.Context) error {
		if retention <= 0 {
			logger.Debug("chat retention disabled")
			return nil
		}
		cutoff := now().Add(-retention)
		n := chat.PruneBefore(ctx, cutoff)
		if obs != nil {
			obs.ObservePruned(n)
		}
		logger.Info("chat logs pruned", zap.Int64("rows", n), zap.Time("cutoff", cutoff))
		return nil
	}
}

// KnowledgeRefresh reloads the cached fact snapshot from the store.
func KnowledgeRefresh(k KnowledgeRefresher, logger *zap.Logger) Job {
	logger = logging.OrNop(logger)
	return func(ctx context.Context) error {
		n := k.Refresh(ctx)
		logger.Debug("knowledge snapshot refreshed", zap.Int("facts", n))
		return nil
	}
}
