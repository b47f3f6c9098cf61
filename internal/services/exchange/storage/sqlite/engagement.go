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

func (s *Store) ensureAnalyticsRow(ctx context.Context, tx *sql.Tx, resourceID string) error {
	_, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO resource_analytics (resource_id) VALUES (?)", resourceID)
	if err != nil {
		if isForeignKeyConstraintError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("ensure analytics row: %w", err)
	}
	return nil
}

// RecordView increments the view counter and tracks the viewer for the
// unique-viewer count.
func (s *Store) RecordView(ctx context.Context, resourceID, viewerID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin view transaction: %w", err)
	}
	if err := s.ensureAnalyticsRow(ctx, tx, resourceID); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE resource_analytics SET view_count = view_count + 1, last_viewed = ? WHERE resource_id = ?",
		toMillis(at), resourceID,
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("increment view count: %w", err)
	}
	if viewerID != "" {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO resource_views (resource_id, viewer_id, first_viewed) VALUES (?, ?, ?)",
			resourceID, viewerID, toMillis(at),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record viewer: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit view: %w", err)
	}
	return nil
}

// RecordTried marks the resource as tried by the user. The counter only
// moves the first time a given user tries a given resource.
func (s *Store) RecordTried(ctx context.Context, userID, resourceID string, at time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tried transaction: %w", err)
	}
	if err := s.ensureAnalyticsRow(ctx, tx, resourceID); err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	result, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO tried_resources (user_id, resource_id, tried_at) VALUES (?, ?, ?)",
		userID, resourceID, toMillis(at),
	)
	if err != nil {
		_ = tx.Rollback()
		if isForeignKeyConstraintError(err) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("record tried: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("record tried rows affected: %w", err)
	}
	if inserted > 0 {
		if _, err := tx.ExecContext(ctx,
			"UPDATE resource_analytics SET tried_count = tried_count + 1 WHERE resource_id = ?",
			resourceID,
		); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("increment tried count: %w", err)
		}
	}

	var count int
	if err := tx.QueryRowContext(ctx,
		"SELECT tried_count FROM resource_analytics WHERE resource_id = ?", resourceID,
	).Scan(&count); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("read tried count: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tried: %w", err)
	}
	return count, nil
}

// ToggleSave bookmarks the resource for the user, or removes the bookmark
// if one exists. It reports the resulting state and save count, which
// never drops below zero.
func (s *Store) ToggleSave(ctx context.Context, userID, resourceID string, at time.Time) (bool, int, error) {
	if err := ctx.Err(); err != nil {
		return false, 0, err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("begin save transaction: %w", err)
	}
	if err := s.ensureAnalyticsRow(ctx, tx, resourceID); err != nil {
		_ = tx.Rollback()
		return false, 0, err
	}

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT 1 FROM saved_resources WHERE user_id = ? AND resource_id = ?", userID, resourceID,
	).Scan(&exists)
	saved := err == nil
	if err != nil && err != sql.ErrNoRows {
		_ = tx.Rollback()
		return false, 0, fmt.Errorf("check saved state: %w", err)
	}

	if saved {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM saved_resources WHERE user_id = ? AND resource_id = ?", userID, resourceID,
		); err != nil {
			_ = tx.Rollback()
			return false, 0, fmt.Errorf("delete save: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE resource_analytics SET save_count = MAX(save_count - 1, 0) WHERE resource_id = ?",
			resourceID,
		); err != nil {
			_ = tx.Rollback()
			return false, 0, fmt.Errorf("decrement save count: %w", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO saved_resources (user_id, resource_id, saved_at) VALUES (?, ?, ?)",
			userID, resourceID, toMillis(at),
		); err != nil {
			_ = tx.Rollback()
			if isForeignKeyConstraintError(err) {
				return false, 0, storage.ErrNotFound
			}
			return false, 0, fmt.Errorf("insert save: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE resource_analytics SET save_count = save_count + 1 WHERE resource_id = ?",
			resourceID,
		); err != nil {
			_ = tx.Rollback()
			return false, 0, fmt.Errorf("increment save count: %w", err)
		}
	}

	var count int
	if err := tx.QueryRowContext(ctx,
		"SELECT save_count FROM resource_analytics WHERE resource_id = ?", resourceID,
	).Scan(&count); err != nil {
		_ = tx.Rollback()
		return false, 0, fmt.Errorf("read save count: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("commit save toggle: %w", err)
	}
	return !saved, count, nil
}

// IsSaved reports whether the user has bookmarked the resource.
func (s *Store) IsSaved(ctx context.Context, userID, resourceID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var exists int
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT 1 FROM saved_resources WHERE user_id = ? AND resource_id = ?", userID, resourceID,
	).Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check saved: %w", err)
	}
	return true, nil
}

const analyticsColumns = `a.resource_id, a.view_count, a.save_count, a.tried_count,
a.fork_count, a.comment_count, a.helpful_count, a.last_viewed,
(SELECT COUNT(1) FROM resource_views v WHERE v.resource_id = a.resource_id)`

func scanAnalytics(row rowScanner) (domain.ResourceAnalytics, error) {
	var (
		analytics  domain.ResourceAnalytics
		lastViewed sql.NullInt64
	)
	err := row.Scan(
		&analytics.ResourceID,
		&analytics.ViewCount,
		&analytics.SaveCount,
		&analytics.TriedCount,
		&analytics.ForkCount,
		&analytics.CommentCount,
		&analytics.HelpfulCount,
		&lastViewed,
		&analytics.UniqueViewers,
	)
	if err != nil {
		return domain.ResourceAnalytics{}, err
	}
	if lastViewed.Valid {
		viewed := fromMillis(lastViewed.Int64)
		analytics.LastViewed = &viewed
	}
	return analytics, nil
}

// GetAnalytics returns engagement counters for one resource. Resources
// without recorded engagement report zeroes.
func (s *Store) GetAnalytics(ctx context.Context, resourceID string) (domain.ResourceAnalytics, error) {
	if err := ctx.Err(); err != nil {
		return domain.ResourceAnalytics{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+analyticsColumns+" FROM resource_analytics a WHERE a.resource_id = ?", resourceID)
	analytics, err := scanAnalytics(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.ResourceAnalytics{ResourceID: resourceID}, nil
		}
		return domain.ResourceAnalytics{}, fmt.Errorf("select analytics: %w", err)
	}
	return analytics, nil
}

// AnalyticsByResourceIDs returns counters keyed by resource id. Resources
// without recorded engagement are omitted.
func (s *Store) AnalyticsByResourceIDs(ctx context.Context, ids []string) (map[string]domain.ResourceAnalytics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := make(map[string]domain.ResourceAnalytics, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+analyticsColumns+" FROM resource_analytics a WHERE a.resource_id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("select analytics by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		analytics, err := scanAnalytics(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analytics: %w", err)
		}
		result[analytics.ResourceID] = analytics
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analytics: %w", err)
	}
	return result, nil
}

// ListSavedResourceIDs returns the user's bookmarks, most recent first.
func (s *Store) ListSavedResourceIDs(ctx context.Context, userID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT resource_id FROM saved_resources WHERE user_id = ? ORDER BY saved_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("select saved resources: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan saved resource: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved resources: %w", err)
	}
	return ids, nil
}

// TopResourcesByViews returns the most viewed resources, hidden ones
// included, matching the totals the admin dashboard reports.
func (s *Store) TopResourcesByViews(ctx context.Context, limit int) ([]domain.ResourceAnalytics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+analyticsColumns+`
FROM resource_analytics a
JOIN resources r ON r.id = a.resource_id
ORDER BY a.view_count DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("select top resources: %w", err)
	}
	defer rows.Close()

	var top []domain.ResourceAnalytics
	for rows.Next() {
		analytics, err := scanAnalytics(rows)
		if err != nil {
			return nil, fmt.Errorf("scan top resource: %w", err)
		}
		top = append(top, analytics)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top resources: %w", err)
	}
	return top, nil
}

// TotalEngagement sums counters across every resource.
func (s *Store) TotalEngagement(ctx context.Context) (storage.EngagementTotals, error) {
	if err := ctx.Err(); err != nil {
		return storage.EngagementTotals{}, err
	}
	var totals storage.EngagementTotals
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT
    COALESCE(SUM(view_count), 0),
    COALESCE(SUM(save_count), 0),
    COALESCE(SUM(tried_count), 0),
    COALESCE(SUM(fork_count), 0),
    COALESCE(SUM(comment_count), 0),
    (SELECT COUNT(DISTINCT viewer_id) FROM resource_views)
FROM resource_analytics
`).Scan(&totals.Views, &totals.Saves, &totals.Tried, &totals.Forks, &totals.Comments, &totals.Viewers)
	if err != nil {
		return storage.EngagementTotals{}, fmt.Errorf("sum engagement: %w", err)
	}
	return totals, nil
}

// IncrementForkCount bumps the fork counter for one resource.
func (s *Store) IncrementForkCount(ctx context.Context, resourceID string) error {
	return s.adjustCounter(ctx, resourceID, "fork_count = fork_count + 1")
}

// AdjustCommentCount moves the comment counter by delta, floored at zero.
func (s *Store) AdjustCommentCount(ctx context.Context, resourceID string, delta int) error {
	if delta >= 0 {
		return s.adjustCounter(ctx, resourceID, fmt.Sprintf("comment_count = comment_count + %d", delta))
	}
	return s.adjustCounter(ctx, resourceID, fmt.Sprintf("comment_count = MAX(comment_count - %d, 0)", -delta))
}

// IncrementHelpfulCount bumps the helpful counter for one resource.
func (s *Store) IncrementHelpfulCount(ctx context.Context, resourceID string) error {
	return s.adjustCounter(ctx, resourceID, "helpful_count = helpful_count + 1")
}

func (s *Store) adjustCounter(ctx context.Context, resourceID, assignment string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin counter transaction: %w", err)
	}
	if err := s.ensureAnalyticsRow(ctx, tx, resourceID); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE resource_analytics SET "+assignment+" WHERE resource_id = ?", resourceID,
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("adjust counter: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit counter: %w", err)
	}
	return nil
}
