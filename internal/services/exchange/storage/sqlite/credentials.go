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

// CreateEmailVerification persists one registration confirmation code.
func (s *Store) CreateEmailVerification(ctx context.Context, verification domain.EmailVerification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(verification.ID) == "" {
		return fmt.Errorf("verification id is required")
	}
	if strings.TrimSpace(verification.Code) == "" {
		return fmt.Errorf("verification code is required")
	}
	if verification.CreatedAt.IsZero() {
		verification.CreatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO email_verifications (id, user_id, code, expires_at, used, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`,
		verification.ID,
		verification.UserID,
		verification.Code,
		toMillis(verification.ExpiresAt),
		boolToInt(verification.Used),
		toMillis(verification.CreatedAt),
	)
	if err != nil {
		if isForeignKeyConstraintError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("insert email verification: %w", err)
	}
	return nil
}

// GetEmailVerification returns the latest verification matching user and code.
func (s *Store) GetEmailVerification(ctx context.Context, userID, code string) (domain.EmailVerification, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmailVerification{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, user_id, code, expires_at, used, created_at
FROM email_verifications
WHERE user_id = ? AND code = ?
ORDER BY created_at DESC
LIMIT 1
`, userID, code)
	verification, err := scanVerification(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.EmailVerification{}, storage.ErrNotFound
		}
		return domain.EmailVerification{}, fmt.Errorf("select email verification: %w", err)
	}
	return verification, nil
}

// MarkEmailVerificationUsed consumes a verification code.
func (s *Store) MarkEmailVerificationUsed(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, "UPDATE email_verifications SET used = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark email verification used: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark verification rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanVerification(row rowScanner) (domain.EmailVerification, error) {
	var (
		verification domain.EmailVerification
		expiresAt    int64
		used         int
		createdAt    int64
	)
	err := row.Scan(
		&verification.ID,
		&verification.UserID,
		&verification.Code,
		&expiresAt,
		&used,
		&createdAt,
	)
	if err != nil {
		return domain.EmailVerification{}, err
	}
	verification.ExpiresAt = fromMillis(expiresAt)
	verification.Used = used == 1
	verification.CreatedAt = fromMillis(createdAt)
	return verification, nil
}

// CreatePasswordReset persists one recovery code after invalidating any
// earlier unused codes for the same user.
func (s *Store) CreatePasswordReset(ctx context.Context, reset domain.PasswordReset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(reset.ID) == "" {
		return fmt.Errorf("reset id is required")
	}
	if strings.TrimSpace(reset.Code) == "" {
		return fmt.Errorf("reset code is required")
	}
	if reset.CreatedAt.IsZero() {
		reset.CreatedAt = time.Now().UTC()
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin password reset transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE password_resets SET used = 1 WHERE user_id = ? AND used = 0", reset.UserID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("invalidate prior password resets: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO password_resets (id, user_id, code, expires_at, used, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`,
		reset.ID,
		reset.UserID,
		reset.Code,
		toMillis(reset.ExpiresAt),
		boolToInt(reset.Used),
		toMillis(reset.CreatedAt),
	); err != nil {
		_ = tx.Rollback()
		if isForeignKeyConstraintError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("insert password reset: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit password reset: %w", err)
	}
	return nil
}

// GetPasswordReset returns the latest reset matching user and code.
func (s *Store) GetPasswordReset(ctx context.Context, userID, code string) (domain.PasswordReset, error) {
	if err := ctx.Err(); err != nil {
		return domain.PasswordReset{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, user_id, code, expires_at, used, created_at
FROM password_resets
WHERE user_id = ? AND code = ?
ORDER BY created_at DESC
LIMIT 1
`, userID, code)

	var (
		reset     domain.PasswordReset
		expiresAt int64
		used      int
		createdAt int64
	)
	err := row.Scan(&reset.ID, &reset.UserID, &reset.Code, &expiresAt, &used, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.PasswordReset{}, storage.ErrNotFound
		}
		return domain.PasswordReset{}, fmt.Errorf("select password reset: %w", err)
	}
	reset.ExpiresAt = fromMillis(expiresAt)
	reset.Used = used == 1
	reset.CreatedAt = fromMillis(createdAt)
	return reset, nil
}

// MarkPasswordResetUsed consumes a recovery code.
func (s *Store) MarkPasswordResetUsed(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, "UPDATE password_resets SET used = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark password reset used: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark reset rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
