package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// Reset token repository errors
var (
	ErrResetTokenNotFound = errors.New("reset token not found")
)

// ResetTokenRepository defines the interface for password-reset token storage.
// The raw token value is never stored; lookups scan the unexpired working set
// and verify each candidate hash.
type ResetTokenRepository interface {
	Create(ctx context.Context, token *PasswordReset) error
	ListUnexpired(ctx context.Context, now time.Time) ([]PasswordReset, error)
	Delete(ctx context.Context, id int64) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// resetTokenRepository implements ResetTokenRepository using PostgreSQL
type resetTokenRepository struct {
	db *sqlx.DB
}

// NewResetTokenRepository creates a new ResetTokenRepository instance
func NewResetTokenRepository(db *sqlx.DB) ResetTokenRepository {
	return &resetTokenRepository{db: db}
}

// Create inserts a new password-reset token row
func (r *resetTokenRepository) Create(ctx context.Context, token *PasswordReset) error {
	query := `
		INSERT INTO password_resets (account_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	return r.db.QueryRowxContext(ctx, query,
		token.AccountID,
		token.TokenHash,
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
}

// ListUnexpired returns all reset tokens that have not yet expired.
// The set is small and short-lived: rows are deleted on consumption
// and expired rows are garbage-collected.
func (r *resetTokenRepository) ListUnexpired(ctx context.Context, now time.Time) ([]PasswordReset, error) {
	query := `
		SELECT id, account_id, token_hash, expires_at, created_at
		FROM password_resets
		WHERE expires_at > $1
		ORDER BY created_at DESC
	`

	var tokens []PasswordReset
	if err := r.db.SelectContext(ctx, &tokens, query, now); err != nil {
		return nil, err
	}

	return tokens, nil
}

// Delete removes a reset token row. Returns ErrResetTokenNotFound when the
// row is already gone, which callers treat as an invalid (already consumed)
// token rather than a success.
func (r *resetTokenRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM password_resets WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrResetTokenNotFound
	}

	return nil
}

// DeleteExpired removes reset tokens that expired before the given time
func (r *resetTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM password_resets WHERE expires_at < $1`

	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
