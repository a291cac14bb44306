// Package pipeline holds the request context, its store, and the stages
// that enrich, route and answer each ingested event.
package pipeline

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"pngtuber-brain/internal/cache"
	"pngtuber-brain/internal/pronouns"
)

type EventType string

const (
	EventChat    EventType = "Chat"
	EventCommand EventType = "Command"
	EventUnknown EventType = "Unknown"
)

// Raw argument keys supplied by the host.
const (
	ArgUser      = "user"
	ArgUserID    = "userId"
	ArgMessage   = "message"
	ArgCommandID = "commandId"
	ArgRawInput  = "rawInput"
	ArgTimestamp = "timestamp"
	ArgChatID    = "chatId"
	ArgPlatform  = "platform"
)

// User is the identity snapshot built for one event.
type User struct {
	ID          string
	DisplayName string
	Nickname    string // empty when none is set
	FirstSeen   time.Time
}

func (u *User) HasNickname() bool { return u != nil && u.Nickname != "" }

type RequestContext struct {
	ID                string
	CreatedAt         time.Time
	RawArgs           map[string]any
	EventType         EventType
	CommandID         string
	User              *User
	Pronouns          pronouns.Set
	CleanedMessage    string
	InjectedFacts     []string
	GeneratedResponse string
}

// Clone returns a deep copy so stages never share mutable state.
func (rc RequestContext) Clone() RequestContext {
	out := rc
	out.RawArgs = maps.Clone(rc.RawArgs)
	out.InjectedFacts = slices.Clone(rc.InjectedFacts)
	if rc.User != nil {
		u := *rc.User
		out.User = &u
	}
	return out
}

// Arg returns a raw argument as text, or "" when absent.
func (rc RequestContext) Arg(key string) string {
	v, ok := rc.RawArgs[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// HasArg reports whether key is present in the raw arguments.
func (rc RequestContext) HasArg(key string) bool {
	_, ok := rc.RawArgs[key]
	return ok
}

// DisplayName prefers the resolved user and falls back to the raw args.
func (rc RequestContext) DisplayName() string {
	if rc.User != nil && rc.User.DisplayName != "" {
		return rc.User.DisplayName
	}
	if n := rc.Arg(ArgUser); n != "" {
		return n
	}
	return "Unknown"
}

// IsCommand is the routing rule: structured commands and text starting with "!".
func (rc RequestContext) IsCommand() bool {
	if rc.EventType == EventCommand {
		return true
	}
	return strings.HasPrefix(rc.CleanedMessage, "!")
}

// NewRequestContext classifies raw host args into a context.
func NewRequestContext(id string, now time.Time, args map[string]any) RequestContext {
	rc := RequestContext{
		ID:        id,
		CreatedAt: now,
		RawArgs:   maps.Clone(args),
		EventType: EventUnknown,
	}
	if rc.RawArgs == nil {
		rc.RawArgs = map[string]any{}
	}
	switch {
	case rc.HasArg(ArgCommandID):
		rc.EventType = EventCommand
		rc.CommandID = rc.Arg(ArgCommandID)
		rc.CleanedMessage = strings.TrimSpace(rc.Arg(ArgRawInput))
	case rc.HasArg(ArgMessage):
		rc.EventType = EventChat
		rc.CleanedMessage = strings.TrimSpace(rc.Arg(ArgMessage))
	}
	return rc
}

// ContextTTL is the lifetime of an in-flight context; every write refreshes it.
const ContextTTL = 10 * time.Minute

func ContextKey(id string) string { return "req_" + id }

// ContextStore keeps request contexts in the shared cache.
type ContextStore struct {
	cache *cache.Cache
}

func NewContextStore(c *cache.Cache) *ContextStore {
	return &ContextStore{cache: c}
}

// Fetch returns a private copy of the context, or false if it expired or never existed.
func (s *ContextStore) Fetch(id string) (RequestContext, bool) {
	rc, ok := cache.Get[RequestContext](s.cache, ContextKey(id))
	if !ok {
		return RequestContext{}, false
	}
	return rc.Clone(), true
}

// Save writes the whole context back and resets its TTL.
func (s *ContextStore) Save(rc RequestContext) {
	s.cache.Set(ContextKey(rc.ID), rc.Clone(), ContextTTL)
}
