package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"pngtuber-brain/internal/logging"
)

// Identity attaches the user, nickname and pronouns to a context.
type Identity struct {
	nicknames NicknameStore
	pronouns  PronounResolver
	next      *IDQueue
	logger    *zap.Logger
	now       func() time.Time
}

func NewIdentity(n NicknameStore, p PronounResolver, next *IDQueue, logger *zap.Logger) *Identity {
	return &Identity{nicknames: n, pronouns: p, next: next, logger: logging.OrNop(logger), now: time.Now}
}

func (*Identity) Name() string { return "identity" }

func (s *Identity) Handle(ctx context.Context, rc *RequestContext) (Result, error) {
	name := rc.Arg(ArgUser)
	userID := rc.Arg(ArgUserID)
	if name == "" || userID == "" {
		return forward(false, s.next), nil
	}

	p := s.pronouns.Get(ctx, userID, name)
	nick, _ := s.nicknames.Get(ctx, userID)

	rc.User = &User{
		ID:          userID,
		DisplayName: name,
		Nickname:    nick,
		FirstSeen:   s.now().UTC(),
	}
	rc.Pronouns = p
	s.logger.Debug("identity resolved", zap.String("request_id", rc.ID),
		zap.String("user", name), zap.String("pronouns", p.Display))
	return forward(true, s.next), nil
}
