package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// SettingsID is the key of the singleton settings row.
const SettingsID = "Global"

// AppSettings is the persisted global settings document.
type AppSettings struct {
	LoggingLevel     string `json:"logging_level"`
	Version          string `json:"version"`
	MaxChatHistory   int    `json:"max_chat_history"`
	MaxPromptHistory int    `json:"max_prompt_history"`
	OpenAIModel      string `json:"openai_model"`
}

// DefaultSettings are written on first bootstrap.
func DefaultSettings() AppSettings {
	return AppSettings{
		LoggingLevel:     "INFO",
		Version:          "2.0.0",
		MaxChatHistory:   20,
		MaxPromptHistory: 10,
		OpenAIModel:      "gpt-4o",
	}
}

func seedSettings(ctx context.Context, db *sql.DB) error {
	data, err := json.Marshal(DefaultSettings())
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	// existing settings are never overwritten
	_, err = db.ExecContext(ctx,
		`INSERT INTO settings (id, data) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		SettingsID, string(data))
	if err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	return nil
}

// Settings reads the singleton. Missing rows yield the defaults.
func (s *Store) Settings(ctx context.Context) (AppSettings, error) {
	out := DefaultSettings()
	err := s.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		var raw string
		err := db.QueryRowContext(ctx, `SELECT data FROM settings WHERE id = ?`, SettingsID).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read settings: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return fmt.Errorf("decode settings: %w", err)
		}
		return nil
	})
	return out, err
}
