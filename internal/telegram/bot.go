// Package telegram hosts the brain in Telegram chats: updates become
// ingested events and replies are sent back to the originating chat.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"pngtuber-brain/internal/logging"
	"pngtuber-brain/internal/pipeline"
)

// UserIDPrefix namespaces Telegram user IDs in the brain's stores.
const UserIDPrefix = "telegram:"

// Ingester is the engine entry point the bot feeds.
type Ingester interface {
	Ingest(args map[string]any) (string, bool)
}

type Bot struct {
	api    *tgbotapi.BotAPI
	s      sender
	in     Ingester
	logger *zap.Logger
}

func New(botToken string, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	logger = logging.OrNop(logger).Named("telegram")
	logger.Info("authorized", zap.String("bot", api.Self.UserName))
	return &Bot{api: api, s: botAPISender{api: api}, logger: logger}, nil
}

// Output returns the reply sink for the engine.
func (b *Bot) Output() *Output {
	return &Output{s: b.s, logger: b.logger}
}

// Start feeds updates into in until ctx is cancelled.
func (b *Bot) Start(ctx context.Context, in Ingester) {
	b.in = in
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				b.handleIncomingMessage(update.Message)
			}
		}
	}
}

func (b *Bot) handleIncomingMessage(msg *tgbotapi.Message) {
	args, ok := EventArgs(msg)
	if !ok {
		return
	}
	id, accepted := b.in.Ingest(args)
	if !accepted {
		b.logger.Debug("event dropped", zap.Any("user", args[pipeline.ArgUser]))
		return
	}
	b.logger.Debug("event ingested", zap.String("request_id", id), zap.Int64("chat_id", msg.Chat.ID))
}

// EventArgs converts a Telegram message into raw engine args. Messages
// without text or sender are skipped.
func EventArgs(msg *tgbotapi.Message) (map[string]any, bool) {
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return nil, false
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil, false
	}
	return map[string]any{
		pipeline.ArgUser:     displayName(msg.From),
		pipeline.ArgUserID:   UserIDPrefix + strconv.FormatInt(msg.From.ID, 10),
		pipeline.ArgMessage:  translateCommand(text),
		pipeline.ArgChatID:   msg.Chat.ID,
		pipeline.ArgPlatform: "telegram",
	}, true
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return u.UserName
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return fmt.Sprintf("user%d", u.ID)
	}
	return name
}

// translateCommand maps "/cmd@BotName rest" to "!cmd rest".
func translateCommand(text string) string {
	if !strings.HasPrefix(text, "/") {
		return text
	}
	cmd, rest, _ := strings.Cut(text[1:], " ")
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	if rest = strings.TrimSpace(rest); rest != "" {
		return "!" + cmd + " " + rest
	}
	return "!" + cmd
}
