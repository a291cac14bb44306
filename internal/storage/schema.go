package storage

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS settings (
		id   TEXT PRIMARY KEY,
		data TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_nicknames (
		user_id    TEXT PRIMARY KEY,
		nickname   TEXT,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_pronouns (
		user_id            TEXT PRIMARY KEY,
		display            TEXT NOT NULL,
		subject            TEXT NOT NULL,
		object             TEXT NOT NULL,
		possessive         TEXT NOT NULL,
		possessive_pronoun TEXT NOT NULL,
		reflexive          TEXT NOT NULL,
		past_tense         TEXT NOT NULL,
		current_tense      TEXT NOT NULL,
		plural             INTEGER NOT NULL,
		last_updated       INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS knowledge_base (
		id         TEXT PRIMARY KEY,
		key        TEXT NOT NULL,
		content    TEXT NOT NULL,
		created_by TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_knowledge_key ON knowledge_base(key)`,
	`CREATE TABLE IF NOT EXISTS chat_logs (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		display_name TEXT NOT NULL,
		message      TEXT NOT NULL,
		timestamp    INTEGER NOT NULL,
		full_text    TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_logs_timestamp ON chat_logs(timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_logs_user ON chat_logs(user_id)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
