package pipeline

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"pngtuber-brain/internal/history"
	"pngtuber-brain/internal/logging"
)

const (
	maxNicknameLen = 30

	replyHelp        = "Commands: !setnick, !removenick, !teach <fact>, !forget <fact>, !help, !version, !setpronouns, !sayplay"
	replySetPronouns = "To set your pronouns, go to https://pr.alejo.io/"
	replySayPlay     = "!play"
	productName      = "PNGTuber-GPTv2"
)

// Asker answers free-form questions for the "!?" command.
type Asker interface {
	Ask(ctx context.Context, rc RequestContext, question string) (string, error)
}

type CommandDeps struct {
	Nicknames  NicknameStore
	Facts      FactStore
	Transcript *history.Transcript
	Prompts    *history.Manager
	Asker      Asker
	Version    string
	Next       *IDQueue
	Logger     *zap.Logger
}

// CommandProcessor executes structured and "!"-prefixed text commands.
type CommandProcessor struct {
	deps     CommandDeps
	logger   *zap.Logger
	handlers map[string]func(ctx context.Context, rc *RequestContext, args string)
}

func NewCommandProcessor(d CommandDeps) *CommandProcessor {
	if d.Version == "" {
		d.Version = "2.0.0"
	}
	p := &CommandProcessor{deps: d, logger: logging.OrNop(d.Logger)}
	p.handlers = map[string]func(context.Context, *RequestContext, string){
		"!setnick":            p.setNick,
		"!removenick":         p.removeNick,
		"!currentnick":        p.currentNick,
		"!teach":              p.teach,
		"!rememberthis":       p.teach,
		"!modteach":           p.teach,
		"!forget":             p.forget,
		"!forgetthis":         p.forget,
		"!modforget":          p.forget,
		"!getmemory":          p.getMemory,
		"!help":               p.static(replyHelp),
		"!version":            p.version,
		"!setpronouns":        p.static(replySetPronouns),
		"!sayplay":            p.static(replySayPlay),
		"!clearchathistory":   p.clearChatHistory,
		"!clearprompthistory": p.clearPromptHistory,
		"!?":                  p.ask,
	}
	return p
}

func (*CommandProcessor) Name() string { return "command" }

func (p *CommandProcessor) Handle(ctx context.Context, rc *RequestContext) (Result, error) {
	switch {
	case rc.EventType == EventCommand && rc.CommandID != "":
		name, ok := CommandName(rc.CommandID)
		if !ok {
			p.logger.Warn("unhandled command id", zap.String("command_id", rc.CommandID))
			break
		}
		p.dispatch(ctx, rc, name, splitArgs(rc.CleanedMessage))
	case rc.EventType == EventChat && strings.HasPrefix(rc.CleanedMessage, "!"):
		cmd, args := splitCommand(rc.CleanedMessage)
		p.dispatch(ctx, rc, cmd, args)
	}
	// written back whether or not anything matched, to refresh the TTL
	return forward(true, p.deps.Next), nil
}

func (p *CommandProcessor) dispatch(ctx context.Context, rc *RequestContext, cmd, args string) {
	if h, ok := p.handlers[cmd]; ok {
		h(ctx, rc, args)
	}
}

// splitFirst splits on the first run of whitespace.
func splitFirst(msg string) (string, string) {
	msg = strings.TrimSpace(msg)
	i := strings.IndexFunc(msg, unicode.IsSpace)
	if i < 0 {
		return msg, ""
	}
	return msg[:i], strings.TrimSpace(msg[i:])
}

// splitCommand returns the lower-cased first token and the trimmed rest.
func splitCommand(msg string) (string, string) {
	cmd, rest := splitFirst(msg)
	return strings.ToLower(cmd), rest
}

// splitArgs drops the first token of structured command input.
func splitArgs(msg string) string {
	_, rest := splitCommand(msg)
	return rest
}

func (p *CommandProcessor) setNick(ctx context.Context, rc *RequestContext, nick string) {
	if rc.User == nil || nick == "" || utf8.RuneCountInString(nick) > maxNicknameLen {
		return
	}
	p.deps.Nicknames.Set(ctx, rc.User.ID, &nick)
	rc.User.Nickname = nick
	rc.GeneratedResponse = fmt.Sprintf("Nickname set to %s!", nick)
	p.logger.Info(fmt.Sprintf("User %s set nickname to %s", rc.User.DisplayName, nick))
}

func (p *CommandProcessor) removeNick(ctx context.Context, rc *RequestContext, _ string) {
	if rc.User == nil {
		return
	}
	p.deps.Nicknames.Set(ctx, rc.User.ID, nil)
	rc.User.Nickname = ""
	rc.GeneratedResponse = "Nickname removed."
	p.logger.Info(fmt.Sprintf("User %s removed nickname.", rc.User.DisplayName))
}

func (p *CommandProcessor) currentNick(_ context.Context, rc *RequestContext, _ string) {
	if rc.User == nil {
		return
	}
	nick := "None"
	if rc.User.HasNickname() {
		nick = rc.User.Nickname
	}
	display := rc.Pronouns.Display
	if display == "" {
		display = "They/Them"
	}
	rc.GeneratedResponse = fmt.Sprintf("Identity: %s (%s) aka '%s'", rc.User.DisplayName, display, nick)
}

func (p *CommandProcessor) teach(ctx context.Context, rc *RequestContext, args string) {
	if rc.User == nil {
		return
	}
	key, content := splitFirst(args)
	if key == "" || content == "" {
		return
	}
	p.deps.Facts.AddFact(ctx, key, content, rc.User.ID)
	rc.GeneratedResponse = "Memorized: " + key
	p.logger.Info(fmt.Sprintf("User %s taught: %s", rc.User.DisplayName, key))
}

func (p *CommandProcessor) forget(ctx context.Context, rc *RequestContext, key string) {
	if rc.User == nil || key == "" {
		return
	}
	p.deps.Facts.RemoveFact(ctx, key)
	rc.GeneratedResponse = "Forgot: " + key
	p.logger.Info(fmt.Sprintf("User %s forgot: %s", rc.User.DisplayName, key))
}

func (p *CommandProcessor) getMemory(ctx context.Context, rc *RequestContext, key string) {
	if key == "" {
		return
	}
	facts := p.deps.Facts.SearchFacts(ctx, key)
	if len(facts) == 0 {
		return
	}
	rc.GeneratedResponse = fmt.Sprintf("%s: %s", facts[0].Key, facts[0].Content)
}

func (p *CommandProcessor) version(_ context.Context, rc *RequestContext, _ string) {
	rc.GeneratedResponse = fmt.Sprintf("%s v%s", productName, p.deps.Version)
}

func (p *CommandProcessor) static(reply string) func(context.Context, *RequestContext, string) {
	return func(_ context.Context, rc *RequestContext, _ string) {
		rc.GeneratedResponse = reply
	}
}

func (p *CommandProcessor) clearChatHistory(_ context.Context, rc *RequestContext, _ string) {
	if p.deps.Transcript == nil {
		return
	}
	p.deps.Transcript.Clear()
	rc.GeneratedResponse = "Chat history cleared."
	p.logger.Info(fmt.Sprintf("User %s cleared the chat history.", rc.DisplayName()))
}

func (p *CommandProcessor) clearPromptHistory(_ context.Context, rc *RequestContext, _ string) {
	if p.deps.Prompts == nil {
		return
	}
	p.deps.Prompts.ResetAll()
	rc.GeneratedResponse = "Prompt history cleared."
	p.logger.Info(fmt.Sprintf("User %s cleared the prompt history.", rc.DisplayName()))
}

func (p *CommandProcessor) ask(ctx context.Context, rc *RequestContext, question string) {
	if p.deps.Asker == nil || question == "" {
		return
	}
	answer, err := p.deps.Asker.Ask(ctx, *rc, question)
	if err != nil {
		p.logger.Warn("ask failed", zap.String("request_id", rc.ID), zap.Error(err))
		return
	}
	rc.GeneratedResponse = answer
}
