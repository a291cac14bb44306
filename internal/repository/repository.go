// Package repository composes the L1 cache, the lock-guarded store and,
// for pronouns, the remote lookup into per-entity read/write APIs.
// Persistence failures are logged and turned into defaults here; callers
// never see them.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"pngtuber-brain/internal/storage"
)

// Store is the subset of storage.Store the repositories use.
type Store interface {
	Do(ctx context.Context, fn func(ctx context.Context, db *sql.DB) error) error
}

var _ Store = (*storage.Store)(nil)

// NormalizeKey is the canonical form of a knowledge key.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func logStoreErr(logger *zap.Logger, op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("op", op))
	if errors.Is(err, storage.ErrLockTimeout) {
		logger.Warn("database busy, operation skipped", fields...)
		return
	}
	logger.Error("database operation failed", append(fields, zap.Error(err))...)
}
