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

func normalizeCollection(collection domain.Collection) (domain.Collection, error) {
	collection.ID = strings.TrimSpace(collection.ID)
	if collection.ID == "" {
		return collection, fmt.Errorf("collection id is required")
	}
	collection.Name = strings.TrimSpace(collection.Name)
	if collection.Name == "" {
		return collection, fmt.Errorf("collection name is required")
	}
	if strings.TrimSpace(collection.OwnerID) == "" {
		return collection, fmt.Errorf("collection owner id is required")
	}
	now := time.Now().UTC()
	if collection.CreatedAt.IsZero() {
		collection.CreatedAt = now
	}
	if collection.UpdatedAt.IsZero() {
		collection.UpdatedAt = collection.CreatedAt
	}
	return collection, nil
}

// CreateCollection persists one curated grouping.
func (s *Store) CreateCollection(ctx context.Context, collection domain.Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	normalized, err := normalizeCollection(collection)
	if err != nil {
		return err
	}
	resourceIDs, err := marshalStrings(normalized.ResourceIDs)
	if err != nil {
		return err
	}
	promptIDs, err := marshalStrings(normalized.PromptIDs)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO collections (id, name, description, owner_id, resource_ids, prompt_ids, subscriber_count, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		normalized.ID,
		normalized.Name,
		normalized.Description,
		normalized.OwnerID,
		resourceIDs,
		promptIDs,
		normalized.SubscriberCount,
		toMillis(normalized.CreatedAt),
		toMillis(normalized.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("insert collection: %w", err)
	}
	return nil
}

const collectionColumns = "id, name, description, owner_id, resource_ids, prompt_ids, subscriber_count, created_at, updated_at"

func scanCollection(row rowScanner) (domain.Collection, error) {
	var (
		collection  domain.Collection
		resourceIDs string
		promptIDs   string
		createdAt   int64
		updatedAt   int64
	)
	err := row.Scan(
		&collection.ID,
		&collection.Name,
		&collection.Description,
		&collection.OwnerID,
		&resourceIDs,
		&promptIDs,
		&collection.SubscriberCount,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Collection{}, err
	}
	if collection.ResourceIDs, err = unmarshalStrings(resourceIDs); err != nil {
		return domain.Collection{}, err
	}
	if collection.PromptIDs, err = unmarshalStrings(promptIDs); err != nil {
		return domain.Collection{}, err
	}
	collection.CreatedAt = fromMillis(createdAt)
	collection.UpdatedAt = fromMillis(updatedAt)
	return collection, nil
}

// GetCollection returns the collection with the given id.
func (s *Store) GetCollection(ctx context.Context, id string) (domain.Collection, error) {
	if err := ctx.Err(); err != nil {
		return domain.Collection{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, "SELECT "+collectionColumns+" FROM collections WHERE id = ?", id)
	collection, err := scanCollection(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Collection{}, storage.ErrNotFound
		}
		return domain.Collection{}, fmt.Errorf("select collection: %w", err)
	}
	return collection, nil
}

// ListCollections returns all collections, newest first.
func (s *Store) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+collectionColumns+" FROM collections ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("select collections: %w", err)
	}
	defer rows.Close()

	var collections []domain.Collection
	for rows.Next() {
		collection, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		collections = append(collections, collection)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collections: %w", err)
	}
	return collections, nil
}

// UpdateCollection overwrites the stored collection with the given state.
func (s *Store) UpdateCollection(ctx context.Context, collection domain.Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	normalized, err := normalizeCollection(collection)
	if err != nil {
		return err
	}
	resourceIDs, err := marshalStrings(normalized.ResourceIDs)
	if err != nil {
		return err
	}
	promptIDs, err := marshalStrings(normalized.PromptIDs)
	if err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE collections
SET name = ?, description = ?, resource_ids = ?, prompt_ids = ?, subscriber_count = ?, updated_at = ?
WHERE id = ?
`,
		normalized.Name,
		normalized.Description,
		resourceIDs,
		promptIDs,
		normalized.SubscriberCount,
		toMillis(time.Now().UTC()),
		normalized.ID,
	)
	if err != nil {
		return fmt.Errorf("update collection: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update collection rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteCollection removes one collection.
func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, "DELETE FROM collections WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete collection rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
