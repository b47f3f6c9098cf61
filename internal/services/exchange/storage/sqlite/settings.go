package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sommlab/ai.exchange/internal/services/exchange/domain"
	"github.com/sommlab/ai.exchange/internal/services/exchange/storage"
)

// UpsertSetting stores or replaces one runtime configuration override.
func (s *Store) UpsertSetting(ctx context.Context, setting domain.Setting) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	setting.Key = strings.TrimSpace(setting.Key)
	if setting.Key == "" {
		return fmt.Errorf("setting key is required")
	}
	if setting.UpdatedAt.IsZero() {
		setting.UpdatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO settings (key, value, secret, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, secret = excluded.secret, updated_at = excluded.updated_at
`,
		setting.Key,
		setting.Value,
		boolToInt(setting.Secret),
		toMillis(setting.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}

// GetSetting returns the override stored under key.
func (s *Store) GetSetting(ctx context.Context, key string) (domain.Setting, error) {
	if err := ctx.Err(); err != nil {
		return domain.Setting{}, err
	}
	var (
		setting   domain.Setting
		secret    int
		updatedAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT key, value, secret, updated_at FROM settings WHERE key = ?", strings.TrimSpace(key),
	).Scan(&setting.Key, &setting.Value, &secret, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Setting{}, storage.ErrNotFound
		}
		return domain.Setting{}, fmt.Errorf("select setting: %w", err)
	}
	setting.Secret = secret == 1
	setting.UpdatedAt = fromMillis(updatedAt)
	return setting, nil
}

// ListSettings returns all stored overrides ordered by key.
func (s *Store) ListSettings(ctx context.Context) ([]domain.Setting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT key, value, secret, updated_at FROM settings ORDER BY key ASC")
	if err != nil {
		return nil, fmt.Errorf("select settings: %w", err)
	}
	defer rows.Close()

	var settings []domain.Setting
	for rows.Next() {
		var (
			setting   domain.Setting
			secret    int
			updatedAt int64
		)
		if err := rows.Scan(&setting.Key, &setting.Value, &secret, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		setting.Secret = secret == 1
		setting.UpdatedAt = fromMillis(updatedAt)
		settings = append(settings, setting)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}
	return settings, nil
}
