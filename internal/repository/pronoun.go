package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"pngtuber-brain/internal/cache"
	"pngtuber-brain/internal/logging"
	"pngtuber-brain/internal/pronouns"
)

const (
	pronounTTL       = 30 * time.Minute
	pronounFreshness = 7 * 24 * time.Hour
)

// Lookup outcomes reported to a PronounObserver.
const (
	PronounFromCache   = "cache"
	PronounFromStore   = "store"
	PronounFromRemote  = "remote"
	PronounFromStale   = "stale"
	PronounFromDefault = "default"
)

type PronounObserver interface {
	ObservePronounLookup(source string)
}

type PronounRepository struct {
	cache    *cache.Cache
	store    Store
	remote   pronouns.Lookup
	logger   *zap.Logger
	observer PronounObserver
	now      func() time.Time
}

// NewPronounRepository wires the three tiers. remote may be nil.
func NewPronounRepository(c *cache.Cache, s Store, remote pronouns.Lookup, logger *zap.Logger) *PronounRepository {
	return &PronounRepository{
		cache:  c,
		store:  s,
		remote: remote,
		logger: logging.OrNop(logger).Named("pronoun"),
		now:    time.Now,
	}
}

func (r *PronounRepository) SetObserver(o PronounObserver) { r.observer = o }

func pronounKey(userID string) string { return "pronouns_" + userID }

// Get resolves the pronouns of a user. It always returns a usable set.
func (r *PronounRepository) Get(ctx context.Context, userID, displayName string) pronouns.Set {
	key := pronounKey(userID)
	if p, ok := cache.Get[pronouns.Set](r.cache, key); ok {
		r.observe(PronounFromCache)
		return p
	}

	stored, updatedAt, found := r.load(ctx, userID)
	if found && r.now().Sub(updatedAt) < pronounFreshness {
		r.cache.Set(key, stored, pronounTTL)
		r.observe(PronounFromStore)
		return stored
	}

	if p, ok := r.fetchRemote(ctx, userID, displayName); ok {
		r.save(ctx, userID, p)
		r.cache.Set(key, p, pronounTTL)
		r.observe(PronounFromRemote)
		return p
	}

	if found {
		r.cache.Set(key, stored, pronounTTL)
		r.observe(PronounFromStale)
		return stored
	}

	// the default is cached but never persisted
	r.cache.Set(key, pronouns.Default, pronounTTL)
	r.observe(PronounFromDefault)
	return pronouns.Default
}

func (r *PronounRepository) fetchRemote(ctx context.Context, userID, displayName string) (pronouns.Set, bool) {
	if r.remote == nil {
		return pronouns.Set{}, false
	}
	for _, login := range lookupLogins(userID, displayName) {
		if p, ok := r.remote.Lookup(ctx, login); ok {
			return p, true
		}
	}
	return pronouns.Set{}, false
}

// lookupLogins yields the display name first, then the platform ID with its
// platform prefix stripped.
func lookupLogins(userID, displayName string) []string {
	var out []string
	if n := strings.ToLower(strings.TrimSpace(displayName)); n != "" {
		out = append(out, n)
	}
	id := userID
	if i := strings.LastIndex(id, ":"); i >= 0 {
		id = id[i+1:]
	}
	if id = strings.TrimSpace(id); id != "" && (len(out) == 0 || out[0] != strings.ToLower(id)) {
		out = append(out, id)
	}
	return out
}

func (r *PronounRepository) load(ctx context.Context, userID string) (pronouns.Set, time.Time, bool) {
	var (
		p       pronouns.Set
		updated int64
		found   bool
	)
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		err := db.QueryRowContext(ctx,
			`SELECT display, subject, object, possessive, possessive_pronoun, reflexive,
			        past_tense, current_tense, plural, last_updated
			 FROM user_pronouns WHERE user_id = ?`, userID).
			Scan(&p.Display, &p.Subject, &p.Object, &p.Possessive, &p.PossessivePronoun,
				&p.Reflexive, &p.PastTense, &p.CurrentTense, &p.Plural, &updated)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		logStoreErr(r.logger, "get pronouns", err, zap.String("user_id", userID))
		return pronouns.Set{}, time.Time{}, false
	}
	return p, time.Unix(0, updated), found
}

func (r *PronounRepository) save(ctx context.Context, userID string, p pronouns.Set) {
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO user_pronouns (user_id, display, subject, object, possessive, possessive_pronoun,
			                            reflexive, past_tense, current_tense, plural, last_updated)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(user_id) DO UPDATE SET
			   display = excluded.display, subject = excluded.subject, object = excluded.object,
			   possessive = excluded.possessive, possessive_pronoun = excluded.possessive_pronoun,
			   reflexive = excluded.reflexive, past_tense = excluded.past_tense,
			   current_tense = excluded.current_tense, plural = excluded.plural,
			   last_updated = excluded.last_updated`,
			userID, p.Display, p.Subject, p.Object, p.Possessive, p.PossessivePronoun,
			p.Reflexive, p.PastTense, p.CurrentTense, p.Plural, r.now().UnixNano())
		return err
	})
	if err != nil {
		logStoreErr(r.logger, "save pronouns", err, zap.String("user_id", userID))
	}
}

func (r *PronounRepository) observe(source string) {
	if r.observer != nil {
		r.observer.ObservePronounLookup(source)
	}
}
