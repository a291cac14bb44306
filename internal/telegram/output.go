package telegram

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"pngtuber-brain/internal/logging"
	"pngtuber-brain/internal/pipeline"
)

// Output sends replies to the chat the event came from.
type Output struct {
	s      sender
	logger *zap.Logger
}

var _ pipeline.Output = (*Output)(nil)

func (o *Output) Say(_ context.Context, rc pipeline.RequestContext, text string) {
	logger := logging.OrNop(o.logger)
	chatID, ok := chatIDOf(rc)
	if !ok {
		logger.Debug("reply without chat, not sent", zap.String("request_id", rc.ID))
		return
	}
	if _, err := o.s.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		logger.Warn("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func chatIDOf(rc pipeline.RequestContext) (int64, bool) {
	switch v := rc.RawArgs[pipeline.ArgChatID].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		return id, err == nil
	}
	return 0, false
}
