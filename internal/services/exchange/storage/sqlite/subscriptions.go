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

// CreateSubscription subscribes the user to one tag.
func (s *Store) CreateSubscription(ctx context.Context, userID, tag string, at time.Time) (domain.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return domain.Subscription{}, err
	}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return domain.Subscription{}, fmt.Errorf("subscription tag is required")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	result, err := s.sqlDB.ExecContext(ctx,
		"INSERT INTO subscriptions (user_id, tag, created_at) VALUES (?, ?, ?)",
		userID, tag, toMillis(at),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.Subscription{}, storage.ErrConflict
		}
		if isForeignKeyConstraintError(err) {
			return domain.Subscription{}, storage.ErrNotFound
		}
		return domain.Subscription{}, fmt.Errorf("insert subscription: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("subscription insert id: %w", err)
	}
	return domain.Subscription{ID: id, UserID: userID, Tag: tag, CreatedAt: at.UTC()}, nil
}

// DeleteSubscription removes the user's subscription to one tag.
func (s *Store) DeleteSubscription(ctx context.Context, userID, tag string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		"DELETE FROM subscriptions WHERE user_id = ? AND tag = ?", userID, strings.TrimSpace(tag))
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete subscription rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListSubscriptions returns the user's tag subscriptions, oldest first.
func (s *Store) ListSubscriptions(ctx context.Context, userID string) ([]domain.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT id, user_id, tag, created_at FROM subscriptions WHERE user_id = ? ORDER BY created_at ASC, id ASC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select subscriptions: %w", err)
	}
	defer rows.Close()

	var subscriptions []domain.Subscription
	for rows.Next() {
		var (
			subscription domain.Subscription
			createdAt    int64
		)
		if err := rows.Scan(&subscription.ID, &subscription.UserID, &subscription.Tag, &createdAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subscription.CreatedAt = fromMillis(createdAt)
		subscriptions = append(subscriptions, subscription)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return subscriptions, nil
}

// ListSubscribersByTags returns the distinct users subscribed to any of
// the given tags.
func (s *Store) ListSubscribersByTags(ctx context.Context, tags []string) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(tags))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(tags))
	for i, tag := range tags {
		args[i] = tag
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT DISTINCT `+prefixColumns(userColumns, "u")+`
FROM users u
JOIN subscriptions sub ON sub.user_id = u.id
WHERE sub.tag IN (`+placeholders+`)
`, args...)
	if err != nil {
		return nil, fmt.Errorf("select subscribers: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			if err == sql.ErrNoRows {
				continue
			}
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}
	return users, nil
}
