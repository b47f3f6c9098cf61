package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sommlab/ai.exchange/internal/services/exchange/domain"
	"github.com/sommlab/ai.exchange/internal/services/exchange/storage"
)

func normalizeUser(user domain.User) (domain.User, error) {
	user.ID = strings.TrimSpace(user.ID)
	if user.ID == "" {
		return user, fmt.Errorf("user id is required")
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" {
		return user, fmt.Errorf("user email is required")
	}
	if strings.TrimSpace(user.HashedPassword) == "" {
		return user, fmt.Errorf("user hashed password is required")
	}
	user.FullName = strings.TrimSpace(user.FullName)
	if !domain.ValidUserRole(string(user.Role)) {
		return user, fmt.Errorf("user role %q is invalid", user.Role)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	return user, nil
}

// CreateUser persists one platform member.
func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	normalized, err := normalizeUser(user)
	if err != nil {
		return err
	}
	disciplines, err := marshalStrings(normalized.Disciplines)
	if err != nil {
		return err
	}
	prefs, err := json.Marshal(normalized.Prefs)
	if err != nil {
		return fmt.Errorf("marshal notification prefs: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO users (id, email, hashed_password, full_name, role, is_active, is_verified, is_approved, disciplines, prefs, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		normalized.ID,
		normalized.Email,
		normalized.HashedPassword,
		normalized.FullName,
		string(normalized.Role),
		boolToInt(normalized.IsActive),
		boolToInt(normalized.IsVerified),
		boolToInt(normalized.IsApproved),
		disciplines,
		string(prefs),
		toMillis(normalized.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const userColumns = "id, email, hashed_password, full_name, role, is_active, is_verified, is_approved, disciplines, prefs, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		user        domain.User
		active      int
		verified    int
		approved    int
		disciplines string
		prefs       string
		createdAt   int64
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.HashedPassword,
		&user.FullName,
		&user.Role,
		&active,
		&verified,
		&approved,
		&disciplines,
		&prefs,
		&createdAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	user.IsActive = active == 1
	user.IsVerified = verified == 1
	user.IsApproved = approved == 1
	if user.Disciplines, err = unmarshalStrings(disciplines); err != nil {
		return domain.User{}, err
	}
	if strings.TrimSpace(prefs) != "" {
		if err := json.Unmarshal([]byte(prefs), &user.Prefs); err != nil {
			return domain.User{}, fmt.Errorf("unmarshal notification prefs: %w", err)
		}
	}
	user.CreatedAt = fromMillis(createdAt)
	return user, nil
}

// GetUser returns the user with the given id.
func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.User{}, storage.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

// GetUserByEmail returns the user registered under the given email.
// The lookup is case-insensitive because emails are stored lowercased.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	normalized := strings.ToLower(strings.TrimSpace(email))
	row := s.sqlDB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", normalized)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.User{}, storage.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("select user by email: %w", err)
	}
	return user, nil
}

// GetUsersByIDs returns users keyed by id. Missing ids are omitted.
func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	users := make(map[string]domain.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.sqlDB.QueryContext(ctx, "SELECT "+userColumns+" FROM users WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("select users by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// ListUsers returns users ordered by registration time, newest first.
func (s *Store) ListUsers(ctx context.Context, skip, limit int) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, skip,
	)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// CountUsers returns the total number of registered users.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var count int
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(1) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// UpdateUser overwrites the stored user with the given state.
func (s *Store) UpdateUser(ctx context.Context, user domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	normalized, err := normalizeUser(user)
	if err != nil {
		return err
	}
	disciplines, err := marshalStrings(normalized.Disciplines)
	if err != nil {
		return err
	}
	prefs, err := json.Marshal(normalized.Prefs)
	if err != nil {
		return fmt.Errorf("marshal notification prefs: %w", err)
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE users
SET email = ?, hashed_password = ?, full_name = ?, role = ?, is_active = ?, is_verified = ?, is_approved = ?, disciplines = ?, prefs = ?
WHERE id = ?
`,
		normalized.Email,
		normalized.HashedPassword,
		normalized.FullName,
		string(normalized.Role),
		boolToInt(normalized.IsActive),
		boolToInt(normalized.IsVerified),
		boolToInt(normalized.IsApproved),
		disciplines,
		string(prefs),
		normalized.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteUser removes the user and, via foreign keys, their resources,
// subscriptions, saves, comments, and prompts.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
