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

func normalizeComment(comment domain.Comment) (domain.Comment, error) {
	comment.ID = strings.TrimSpace(comment.ID)
	if comment.ID == "" {
		return comment, fmt.Errorf("comment id is required")
	}
	if strings.TrimSpace(comment.ResourceID) == "" {
		return comment, fmt.Errorf("comment resource id is required")
	}
	if strings.TrimSpace(comment.UserID) == "" {
		return comment, fmt.Errorf("comment user id is required")
	}
	comment.Content = strings.TrimSpace(comment.Content)
	if comment.Content == "" {
		return comment, fmt.Errorf("comment content is required")
	}
	now := time.Now().UTC()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = now
	}
	if comment.UpdatedAt.IsZero() {
		comment.UpdatedAt = comment.CreatedAt
	}
	return comment, nil
}

// CreateComment persists one discussion entry.
func (s *Store) CreateComment(ctx context.Context, comment domain.Comment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	normalized, err := normalizeComment(comment)
	if err != nil {
		return err
	}
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO comments (id, resource_id, parent_comment_id, user_id, content, helpful_count, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		normalized.ID,
		normalized.ResourceID,
		nullableString(normalized.ParentCommentID),
		normalized.UserID,
		normalized.Content,
		normalized.HelpfulCount,
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
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

const commentColumns = "id, resource_id, parent_comment_id, user_id, content, helpful_count, created_at, updated_at"

func scanComment(row rowScanner) (domain.Comment, error) {
	var (
		comment   domain.Comment
		parentID  sql.NullString
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(
		&comment.ID,
		&comment.ResourceID,
		&parentID,
		&comment.UserID,
		&comment.Content,
		&comment.HelpfulCount,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Comment{}, err
	}
	comment.ParentCommentID = parentID.String
	comment.CreatedAt = fromMillis(createdAt)
	comment.UpdatedAt = fromMillis(updatedAt)
	return comment, nil
}

// GetComment returns the comment with the given id.
func (s *Store) GetComment(ctx context.Context, id string) (domain.Comment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Comment{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, "SELECT "+commentColumns+" FROM comments WHERE id = ?", id)
	comment, err := scanComment(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Comment{}, storage.ErrNotFound
		}
		return domain.Comment{}, fmt.Errorf("select comment: %w", err)
	}
	return comment, nil
}

// ListComments returns a resource's comments, oldest first.
func (s *Store) ListComments(ctx context.Context, resourceID string) ([]domain.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+commentColumns+" FROM comments WHERE resource_id = ? ORDER BY created_at ASC, id ASC",
		resourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("select comments: %w", err)
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}

// UpdateComment overwrites the comment content.
func (s *Store) UpdateComment(ctx context.Context, comment domain.Comment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	normalized, err := normalizeComment(comment)
	if err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		"UPDATE comments SET content = ?, updated_at = ? WHERE id = ?",
		normalized.Content, toMillis(time.Now().UTC()), normalized.ID,
	)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update comment rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteComment removes one comment.
func (s *Store) DeleteComment(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, "DELETE FROM comments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete comment rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// IncrementCommentHelpful bumps the helpful counter and returns the new value.
func (s *Store) IncrementCommentHelpful(ctx context.Context, id string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		"UPDATE comments SET helpful_count = helpful_count + 1 WHERE id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("increment comment helpful: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("increment helpful rows affected: %w", err)
	}
	if affected == 0 {
		return 0, storage.ErrNotFound
	}
	var count int
	if err := s.sqlDB.QueryRowContext(ctx,
		"SELECT helpful_count FROM comments WHERE id = ?", id,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("read helpful count: %w", err)
	}
	return count, nil
}
