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

func normalizePrompt(prompt domain.Prompt) (domain.Prompt, error) {
	prompt.ID = strings.TrimSpace(prompt.ID)
	if prompt.ID == "" {
		return prompt, fmt.Errorf("prompt id is required")
	}
	if strings.TrimSpace(prompt.UserID) == "" {
		return prompt, fmt.Errorf("prompt user id is required")
	}
	prompt.Title = strings.TrimSpace(prompt.Title)
	if prompt.Title == "" {
		return prompt, fmt.Errorf("prompt title is required")
	}
	if strings.TrimSpace(prompt.PromptText) == "" {
		return prompt, fmt.Errorf("prompt text is required")
	}
	if prompt.SharingLevel == "" {
		prompt.SharingLevel = domain.SharingPrivate
	}
	if !domain.ValidSharingLevel(string(prompt.SharingLevel)) {
		return prompt, fmt.Errorf("prompt sharing level %q is invalid", prompt.SharingLevel)
	}
	if prompt.VersionNumber <= 0 {
		prompt.VersionNumber = 1
	}
	now := time.Now().UTC()
	if prompt.CreatedAt.IsZero() {
		prompt.CreatedAt = now
	}
	if prompt.UpdatedAt.IsZero() {
		prompt.UpdatedAt = prompt.CreatedAt
	}
	return prompt, nil
}

// CreatePrompt persists one prompt-library entry.
func (s *Store) CreatePrompt(ctx context.Context, prompt domain.Prompt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	normalized, err := normalizePrompt(prompt)
	if err != nil {
		return err
	}
	variables, err := marshalStrings(normalized.Variables)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO prompts (id, user_id, title, prompt_text, description, variables, sharing_level,
    is_fork, forked_from_id, version_number, usage_count, fork_count, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		normalized.ID,
		normalized.UserID,
		normalized.Title,
		normalized.PromptText,
		normalized.Description,
		variables,
		string(normalized.SharingLevel),
		boolToInt(normalized.IsFork),
		nullableString(normalized.ForkedFromID),
		normalized.VersionNumber,
		normalized.UsageCount,
		normalized.ForkCount,
		toMillis(normalized.CreatedAt),
		toMillis(normalized.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		if isForeignKeyConstraintError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("insert prompt: %w", err)
	}
	return nil
}

const promptColumns = `id, user_id, title, prompt_text, description, variables, sharing_level,
is_fork, forked_from_id, version_number, usage_count, fork_count, created_at, updated_at`

func scanPrompt(row rowScanner) (domain.Prompt, error) {
	var (
		prompt       domain.Prompt
		variables    string
		isFork       int
		forkedFromID sql.NullString
		createdAt    int64
		updatedAt    int64
	)
	err := row.Scan(
		&prompt.ID,
		&prompt.UserID,
		&prompt.Title,
		&prompt.PromptText,
		&prompt.Description,
		&variables,
		&prompt.SharingLevel,
		&isFork,
		&forkedFromID,
		&prompt.VersionNumber,
		&prompt.UsageCount,
		&prompt.ForkCount,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Prompt{}, err
	}
	if prompt.Variables, err = unmarshalStrings(variables); err != nil {
		return domain.Prompt{}, err
	}
	prompt.IsFork = isFork == 1
	prompt.ForkedFromID = forkedFromID.String
	prompt.CreatedAt = fromMillis(createdAt)
	prompt.UpdatedAt = fromMillis(updatedAt)
	return prompt, nil
}

// GetPrompt returns the prompt with the given id.
func (s *Store) GetPrompt(ctx context.Context, id string) (domain.Prompt, error) {
	if err := ctx.Err(); err != nil {
		return domain.Prompt{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, "SELECT "+promptColumns+" FROM prompts WHERE id = ?", id)
	prompt, err := scanPrompt(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Prompt{}, storage.ErrNotFound
		}
		return domain.Prompt{}, fmt.Errorf("select prompt: %w", err)
	}
	return prompt, nil
}

// ListPrompts returns prompts visible to the viewer: their own entries
// plus everything shared beyond PRIVATE.
func (s *Store) ListPrompts(ctx context.Context, filter storage.PromptFilter) ([]domain.Prompt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := "SELECT " + promptColumns + " FROM prompts WHERE (user_id = ? OR sharing_level != ?)"
	args := []any{filter.ViewerID, string(domain.SharingPrivate)}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query += " AND (title LIKE ? OR description LIKE ? OR prompt_text LIKE ?)"
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern, pattern)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select prompts: %w", err)
	}
	defer rows.Close()

	var prompts []domain.Prompt
	for rows.Next() {
		prompt, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		prompts = append(prompts, prompt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prompts: %w", err)
	}
	return prompts, nil
}

// UpdatePrompt overwrites the stored prompt with the given state.
func (s *Store) UpdatePrompt(ctx context.Context, prompt domain.Prompt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	normalized, err := normalizePrompt(prompt)
	if err != nil {
		return err
	}
	variables, err := marshalStrings(normalized.Variables)
	if err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE prompts
SET title = ?, prompt_text = ?, description = ?, variables = ?, sharing_level = ?, version_number = ?, updated_at = ?
WHERE id = ?
`,
		normalized.Title,
		normalized.PromptText,
		normalized.Description,
		variables,
		string(normalized.SharingLevel),
		normalized.VersionNumber,
		toMillis(time.Now().UTC()),
		normalized.ID,
	)
	if err != nil {
		return fmt.Errorf("update prompt: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update prompt rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeletePrompt removes one prompt.
func (s *Store) DeletePrompt(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, "DELETE FROM prompts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete prompt: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete prompt rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// IncrementPromptUsage bumps the usage counter and returns the new value.
func (s *Store) IncrementPromptUsage(ctx context.Context, id string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		"UPDATE prompts SET usage_count = usage_count + 1 WHERE id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("increment prompt usage: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("increment usage rows affected: %w", err)
	}
	if affected == 0 {
		return 0, storage.ErrNotFound
	}
	var count int
	if err := s.sqlDB.QueryRowContext(ctx,
		"SELECT usage_count FROM prompts WHERE id = ?", id,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("read usage count: %w", err)
	}
	return count, nil
}

// IncrementPromptForks bumps the fork counter.
func (s *Store) IncrementPromptForks(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		"UPDATE prompts SET fork_count = fork_count + 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("increment prompt forks: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment forks rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
