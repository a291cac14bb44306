package pipeline

import (
	"context"
	"errors"
	"strings"

	"pngtuber-brain/internal/history"
	"pngtuber-brain/internal/llm"
)

const assistantPersona = "You are a friendly VTuber companion bot in a live stream chat. " +
	"Answer in one or two short sentences."

// Assistant answers "!?" questions with the LLM, grounding the prompt in
// matching facts, the recent transcript and the asker's previous exchanges.
type Assistant struct {
	client     llm.Client
	facts      FactStore
	transcript *history.Transcript
	prompts    *history.Manager
}

func NewAssistant(c llm.Client, f FactStore, t *history.Transcript, p *history.Manager) *Assistant {
	return &Assistant{client: c, facts: f, transcript: t, prompts: p}
}

func (a *Assistant) Ask(ctx context.Context, rc RequestContext, question string) (string, error) {
	msgs := []llm.Message{{Role: "system", Content: a.systemPrompt(ctx, rc, question)}}
	userID := ""
	if rc.User != nil {
		userID = rc.User.ID
	}
	if a.prompts != nil && userID != "" {
		msgs = append(msgs, a.prompts.Get(userID)...)
	}
	msgs = append(msgs, llm.Message{Role: "user", Content: question})

	resp, err := a.client.Generate(ctx, msgs)
	if err != nil {
		return "", err
	}
	answer := strings.TrimSpace(resp.Content)
	if answer == "" {
		return "", errors.New("empty answer")
	}
	if a.prompts != nil && userID != "" {
		a.prompts.AppendExchange(userID, question, answer)
	}
	return answer, nil
}

func (a *Assistant) systemPrompt(ctx context.Context, rc RequestContext, question string) string {
	var b strings.Builder
	b.WriteString(assistantPersona)

	if rc.User != nil {
		b.WriteString("\nYou are talking to ")
		b.WriteString(rc.DisplayName())
		if rc.User.HasNickname() {
			b.WriteString(" (they go by " + rc.User.Nickname + ")")
		}
		if rc.Pronouns.Display != "" {
			b.WriteString(", pronouns " + rc.Pronouns.Display)
		}
		b.WriteString(".")
	}

	q := strings.ToLower(question)
	var known []string
	if a.facts != nil {
		for _, f := range a.facts.GetAllFacts(ctx) {
			if f.Key != "" && strings.Contains(q, f.Key) {
				known = append(known, f.Content)
			}
		}
	}
	known = append(known, rc.InjectedFacts...)
	if len(known) > 0 {
		b.WriteString("\nFacts you know:\n- ")
		b.WriteString(strings.Join(known, "\n- "))
	}

	if a.transcript != nil {
		if lines := a.transcript.Lines(); len(lines) > 0 {
			b.WriteString("\nRecent chat:\n")
			b.WriteString(strings.Join(lines, "\n"))
		}
	}
	return b.String()
}
