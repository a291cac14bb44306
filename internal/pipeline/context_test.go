package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pngtuber-brain/internal/cache"
	"pngtuber-brain/internal/pronouns"
)

func TestNewRequestContext_Classification(t *testing.T) {
	now := time.Now()

	cmd := NewRequestContext("1", now, map[string]any{"commandId": CmdHelp, "rawInput": "  !help  ", "message": "ignored"})
	assert.Equal(t, EventCommand, cmd.EventType)
	assert.Equal(t, CmdHelp, cmd.CommandID)
	assert.Equal(t, "!help", cmd.CleanedMessage)

	chat := NewRequestContext("2", now, map[string]any{"message": "  hi there ", "custom": 7})
	assert.Equal(t, EventChat, chat.EventType)
	assert.Equal(t, "hi there", chat.CleanedMessage)
	assert.Equal(t, "7", chat.Arg("custom"))
	assert.Empty(t, chat.CommandID)

	unknown := NewRequestContext("3", now, map[string]any{"triggerType": "Follow"})
	assert.Equal(t, EventUnknown, unknown.EventType)
	assert.Empty(t, unknown.CleanedMessage)

	empty := NewRequestContext("4", now, nil)
	assert.NotNil(t, empty.RawArgs)
}

func TestRequestContext_IsCommand(t *testing.T) {
	assert.True(t, RequestContext{EventType: EventCommand}.IsCommand())
	assert.True(t, RequestContext{EventType: EventChat, CleanedMessage: "!setnick x"}.IsCommand())
	assert.False(t, RequestContext{EventType: EventChat, CleanedMessage: "hello !"}.IsCommand())
	assert.False(t, RequestContext{EventType: EventChat}.IsCommand())
}

func TestContextStore_CopiesAreIndependent(t *testing.T) {
	s := NewContextStore(cache.New(0))
	rc := NewRequestContext("abc", time.Now(), map[string]any{"message": "hi"})
	rc.User = &User{ID: "u", DisplayName: "U"}
	s.Save(rc)

	a, ok := s.Fetch("abc")
	require.True(t, ok)
	a.User.Nickname = "changed"
	a.RawArgs["message"] = "changed"
	a.InjectedFacts = append(a.InjectedFacts, "x")

	b, ok := s.Fetch("abc")
	require.True(t, ok)
	assert.Empty(t, b.User.Nickname)
	assert.Equal(t, "hi", b.Arg("message"))
	assert.Empty(t, b.InjectedFacts)

	_, ok = s.Fetch("missing")
	assert.False(t, ok)
}

func TestTranscriptLine(t *testing.T) {
	rc := RequestContext{EventType: EventChat, CleanedMessage: "hello",
		User: &User{DisplayName: "Alice", Nickname: "Ali"}, Pronouns: pronouns.SheHer}
	assert.Equal(t, "Alice (Ali) (She/Her) said: hello", TranscriptLine(rc))

	anon := RequestContext{EventType: EventChat, CleanedMessage: "yo"}
	assert.Equal(t, "Unknown (None) (They/Them) said: yo", TranscriptLine(anon))
}
