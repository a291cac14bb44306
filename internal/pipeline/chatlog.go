package pipeline

import (
	"context"

	"go.uber.org/zap"

	"pngtuber-brain/internal/logging"
	"pngtuber-brain/internal/repository"
)

// ChatPersistence archives chat messages. It runs beside Identity, so it
// reads the user straight from the raw args.
type ChatPersistence struct {
	archive ChatArchive
	logger  *zap.Logger
}

func NewChatPersistence(a ChatArchive, logger *zap.Logger) *ChatPersistence {
	return &ChatPersistence{archive: a, logger: logging.OrNop(logger)}
}

func (*ChatPersistence) Name() string { return "chatlog" }

func (s *ChatPersistence) Handle(ctx context.Context, rc *RequestContext) (Result, error) {
	if rc.EventType != EventChat || rc.CleanedMessage == "" {
		return Result{}, nil
	}
	name, userID := "Unknown", "Unknown"
	if rc.HasArg(ArgUser) && rc.HasArg(ArgUserID) {
		name, userID = rc.Arg(ArgUser), rc.Arg(ArgUserID)
	}
	s.archive.Add(ctx, repository.ChatMessage{
		UserID:      userID,
		DisplayName: name,
		Message:     rc.CleanedMessage,
		Timestamp:   rc.CreatedAt,
		FullText:    name + " said " + rc.CleanedMessage,
	})
	s.logger.Debug("chat message archived", zap.String("request_id", rc.ID), zap.String("user", name))
	return Result{}, nil
}
