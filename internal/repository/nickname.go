package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"pngtuber-brain/internal/cache"
	"pngtuber-brain/internal/logging"
)

const nicknameTTL = 30 * time.Minute

// nicknameEntry is what the cache holds. Removed marks an explicit removal,
// which is different from "not cached".
type nicknameEntry struct {
	Nickname string
	Removed  bool
}

type NicknameRepository struct {
	cache  *cache.Cache
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewNicknameRepository(c *cache.Cache, s Store, logger *zap.Logger) *NicknameRepository {
	return &NicknameRepository{cache: c, store: s, logger: logging.OrNop(logger).Named("nickname"), now: time.Now}
}

func nicknameKey(userID string) string { return "nick_" + userID }

// Get returns the user's nickname and whether one is set.
func (r *NicknameRepository) Get(ctx context.Context, userID string) (string, bool) {
	if e, ok := cache.Get[nicknameEntry](r.cache, nicknameKey(userID)); ok {
		if e.Removed {
			return "", false
		}
		return e.Nickname, true
	}

	var nick sql.NullString
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		err := db.QueryRowContext(ctx,
			`SELECT nickname FROM user_nicknames WHERE user_id = ?`, userID).Scan(&nick)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	})
	if err != nil {
		logStoreErr(r.logger, "get nickname", err, zap.String("user_id", userID))
		return "", false
	}
	if !nick.Valid {
		// misses are not cached so a later Set is observed immediately
		return "", false
	}
	r.cache.Set(nicknameKey(userID), nicknameEntry{Nickname: nick.String}, nicknameTTL)
	return nick.String, true
}

// Set stores nickname for userID. A nil nickname removes it.
func (r *NicknameRepository) Set(ctx context.Context, userID string, nickname *string) {
	var value sql.NullString
	if nickname != nil {
		value = sql.NullString{String: *nickname, Valid: true}
	}
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO user_nicknames (user_id, nickname, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(user_id) DO UPDATE SET nickname = excluded.nickname, updated_at = excluded.updated_at`,
			userID, value, r.now().UnixNano())
		return err
	})
	if err != nil {
		logStoreErr(r.logger, "set nickname", err, zap.String("user_id", userID))
	}

	entry := nicknameEntry{Removed: true}
	if nickname != nil {
		entry = nicknameEntry{Nickname: *nickname}
	}
	r.cache.Set(nicknameKey(userID), entry, nicknameTTL)
}

// Count returns the number of persisted nickname records, set or removed.
func (r *NicknameRepository) Count(ctx context.Context) int {
	var n int
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		return db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_nicknames`).Scan(&n)
	})
	if err != nil {
		logStoreErr(r.logger, "count nicknames", err)
		return 0
	}
	return n
}
