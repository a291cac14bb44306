package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pngtuber-brain/internal/logging"
)

// ChatMessage is an archived chat line. Records are never updated.
type ChatMessage struct {
	ID          string
	UserID      string
	DisplayName string
	Message     string
	Timestamp   time.Time
	FullText    string
}

type ChatMessageRepository struct {
	store  Store
	logger *zap.Logger
}

func NewChatMessageRepository(s Store, logger *zap.Logger) *ChatMessageRepository {
	return &ChatMessageRepository{store: s, logger: logging.OrNop(logger).Named("chat")}
}

func (r *ChatMessageRepository) Add(ctx context.Context, m ChatMessage) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO chat_logs (id, user_id, display_name, message, timestamp, full_text)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID, m.UserID, m.DisplayName, m.Message, m.Timestamp.UnixNano(), m.FullText)
		return err
	})
	if err != nil {
		logStoreErr(r.logger, "add chat message", err, zap.String("user_id", m.UserID))
	}
}

// GetRecent returns up to count messages, newest first.
func (r *ChatMessageRepository) GetRecent(ctx context.Context, count int) []ChatMessage {
	if count <= 0 {
		return nil
	}
	var out []ChatMessage
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT id, user_id, display_name, message, timestamp, full_text
			 FROM chat_logs ORDER BY timestamp DESC LIMIT ?`, count)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var m ChatMessage
			var ts int64
			if err := rows.Scan(&m.ID, &m.UserID, &m.DisplayName, &m.Message, &ts, &m.FullText); err != nil {
				return err
			}
			m.Timestamp = time.Unix(0, ts)
			out = append(out, m)
		}
		return rows.Err()
	})
	if err != nil {
		logStoreErr(r.logger, "get recent chat", err)
		return nil
	}
	return out
}

// PruneBefore deletes messages older than cutoff and returns how many went.
func (r *ChatMessageRepository) PruneBefore(ctx context.Context, cutoff time.Time) int64 {
	var n int64
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, `DELETE FROM chat_logs WHERE timestamp < ?`, cutoff.UnixNano())
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		logStoreErr(r.logger, "prune chat", err)
		return 0
	}
	return n
}
