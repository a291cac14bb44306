package repository

import (
	"context"
	"database/sql"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pngtuber-brain/internal/cache"
	"pngtuber-brain/internal/logging"
)

const (
	knowledgeAllKey = "knowledge_all"
	knowledgeAllTTL = 60 * time.Minute
	factTTL         = 7 * 24 * time.Hour
)

// Fact is a knowledge entry. Key is always normalized.
type Fact struct {
	ID        string
	Key       string
	Content   string
	CreatedBy string
	CreatedAt time.Time
}

type KnowledgeRepository struct {
	cache  *cache.Cache
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewKnowledgeRepository(c *cache.Cache, s Store, logger *zap.Logger) *KnowledgeRepository {
	return &KnowledgeRepository{cache: c, store: s, logger: logging.OrNop(logger).Named("knowledge"), now: time.Now}
}

func factKey(key string) string { return "fact_" + key }

// AddFact inserts the fact or overwrites the content of an existing key.
func (r *KnowledgeRepository) AddFact(ctx context.Context, key, content, userID string) {
	key = NormalizeKey(key)
	if key == "" {
		return
	}
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO knowledge_base (id, key, content, created_by, created_at) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET content = excluded.content,
			   created_by = excluded.created_by, created_at = excluded.created_at`,
			uuid.NewString(), key, content, userID, r.now().UnixNano())
		if err != nil {
			return err
		}
		r.cache.Remove(knowledgeAllKey)
		r.cache.Set(factKey(key), content, factTTL)
		return nil
	})
	if err != nil {
		logStoreErr(r.logger, "add fact", err, zap.String("key", key))
	}
}

// RemoveFact deletes key. It reports whether a row was removed.
func (r *KnowledgeRepository) RemoveFact(ctx context.Context, key string) bool {
	key = NormalizeKey(key)
	var removed bool
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, `DELETE FROM knowledge_base WHERE key = ?`, key)
		if err != nil {
			return err
		}
		r.cache.Remove(knowledgeAllKey)
		r.cache.Remove(factKey(key))
		n, err := res.RowsAffected()
		removed = n > 0
		return err
	})
	if err != nil {
		logStoreErr(r.logger, "remove fact", err, zap.String("key", key))
	}
	return removed
}

// SearchFacts is an exact, case-insensitive key lookup straight from the store.
func (r *KnowledgeRepository) SearchFacts(ctx context.Context, key string) []Fact {
	key = NormalizeKey(key)
	facts, err := r.query(ctx, `SELECT id, key, content, created_by, created_at FROM knowledge_base WHERE key = ?`, key)
	if err != nil {
		logStoreErr(r.logger, "search facts", err, zap.String("key", key))
		return nil
	}
	return facts
}

// GetAllFacts returns the cached snapshot of every fact, loading it on miss.
// The snapshot is cached while the lock is held, so a concurrent add or
// remove cannot be overwritten by an older load.
func (r *KnowledgeRepository) GetAllFacts(ctx context.Context) []Fact {
	if facts, ok := cache.Get[[]Fact](r.cache, knowledgeAllKey); ok {
		return slices.Clone(facts)
	}
	var facts []Fact
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		loaded, err := scanFacts(ctx, db, `SELECT id, key, content, created_by, created_at FROM knowledge_base ORDER BY key`)
		if err != nil {
			return err
		}
		if loaded == nil {
			loaded = []Fact{}
		}
		r.cache.Set(knowledgeAllKey, loaded, knowledgeAllTTL)
		facts = loaded
		return nil
	})
	if err != nil {
		logStoreErr(r.logger, "get all facts", err)
		return nil
	}
	return slices.Clone(facts)
}

// Refresh drops the snapshot and reloads it.
func (r *KnowledgeRepository) Refresh(ctx context.Context) int {
	r.cache.Remove(knowledgeAllKey)
	return len(r.GetAllFacts(ctx))
}

func (r *KnowledgeRepository) query(ctx context.Context, q string, args ...any) ([]Fact, error) {
	var out []Fact
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		var err error
		out, err = scanFacts(ctx, db, q, args...)
		return err
	})
	return out, err
}

func scanFacts(ctx context.Context, db *sql.DB, q string, args ...any) ([]Fact, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Fact
	for rows.Next() {
		var f Fact
		var created int64
		if err := rows.Scan(&f.ID, &f.Key, &f.Content, &f.CreatedBy, &created); err != nil {
			return nil, err
		}
		f.CreatedAt = time.Unix(0, created)
		out = append(out, f)
	}
	return out, rows.Err()
}
