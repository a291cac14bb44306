package pipeline

import (
	"context"
	"fmt"

	"pngtuber-brain/internal/history"
)

// ResponseEmitter is the terminal stage: it surfaces replies and records
// chat lines in the transcript.
type ResponseEmitter struct {
	out        Output
	transcript *history.Transcript
}

func NewResponseEmitter(out Output, t *history.Transcript) *ResponseEmitter {
	return &ResponseEmitter{out: out, transcript: t}
}

func (*ResponseEmitter) Name() string { return "response" }

func (s *ResponseEmitter) Handle(ctx context.Context, rc *RequestContext) (Result, error) {
	if rc.GeneratedResponse != "" && s.out != nil {
		s.out.Say(ctx, *rc, rc.GeneratedResponse)
	}
	if rc.EventType == EventChat && rc.CleanedMessage != "" && s.transcript != nil {
		s.transcript.Add(TranscriptLine(*rc))
	}
	return Result{}, nil
}

// TranscriptLine renders "name (nickname) (pronouns) said: message".
func TranscriptLine(rc RequestContext) string {
	nick := "None"
	if rc.User.HasNickname() {
		nick = rc.User.Nickname
	}
	display := rc.Pronouns.Display
	if display == "" {
		display = "They/Them"
	}
	return fmt.Sprintf("%s (%s) (%s) said: %s", rc.DisplayName(), nick, display, rc.CleanedMessage)
}
