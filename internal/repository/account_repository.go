package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Common errors
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
)

// AccountRepository defines the interface for account data access.
// Each operation is a single atomic statement; callers never rely on
// multi-statement transactions across these calls.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id int64) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	UpdatePassword(ctx context.Context, id int64, newHash string) error
	IncrementFailedAttempts(ctx context.Context, id int64) (int, error)
	ResetFailedAttempts(ctx context.Context, id int64) error
	SetLocked(ctx context.Context, id int64, locked bool) error
	UpdateLastLogin(ctx context.Context, id int64) error
}

// accountRepository implements AccountRepository using PostgreSQL
type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository instance
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

// Create inserts a new account into the database
func (r *accountRepository) Create(ctx context.Context, account *Account) error {
	query := `
		INSERT INTO accounts (name, email, password_hash, role, department_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, failed_attempts, locked, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		account.Name,
		strings.ToLower(account.Email),
		account.PasswordHash,
		account.Role,
		account.DepartmentID,
	).Scan(&account.ID, &account.FailedAttempts, &account.Locked, &account.CreatedAt)

	if err != nil {
		if strings.Contains(err.Error(), "uq_accounts_email") {
			return ErrEmailAlreadyExists
		}
		return err
	}

	return nil
}

// GetByID retrieves an account by its id
func (r *accountRepository) GetByID(ctx context.Context, id int64) (*Account, error) {
	query := `
		SELECT id, name, email, password_hash, role, department_id,
		       failed_attempts, locked, created_at, last_login_at
		FROM accounts
		WHERE id = $1
	`

	return r.scanAccount(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail retrieves an account by email address (case-insensitive)
func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	query := `
		SELECT id, name, email, password_hash, role, department_id,
		       failed_attempts, locked, created_at, last_login_at
		FROM accounts
		WHERE LOWER(email) = LOWER($1)
	`

	return r.scanAccount(r.pool.QueryRow(ctx, query, email))
}

// UpdatePassword replaces the stored password hash for an account
func (r *accountRepository) UpdatePassword(ctx context.Context, id int64, newHash string) error {
	query := `UPDATE accounts SET password_hash = $1 WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, newHash, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// IncrementFailedAttempts atomically bumps the failed-attempt counter and
// returns the new value. The increment happens in the database so two
// concurrent failed logins cannot both observe the same count.
func (r *accountRepository) IncrementFailedAttempts(ctx context.Context, id int64) (int, error) {
	query := `
		UPDATE accounts
		SET failed_attempts = failed_attempts + 1
		WHERE id = $1
		RETURNING failed_attempts
	`

	var count int
	err := r.pool.QueryRow(ctx, query, id).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}

	return count, nil
}

// ResetFailedAttempts sets the failed-attempt counter back to zero
func (r *accountRepository) ResetFailedAttempts(ctx context.Context, id int64) error {
	query := `UPDATE accounts SET failed_attempts = 0 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// SetLocked flips the lock flag on an account
func (r *accountRepository) SetLocked(ctx context.Context, id int64, locked bool) error {
	query := `UPDATE accounts SET locked = $1 WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, locked, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// UpdateLastLogin stamps the last successful login time
func (r *accountRepository) UpdateLastLogin(ctx context.Context, id int64) error {
	query := `UPDATE accounts SET last_login_at = $1 WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// scanAccount scans a single account row
func (r *accountRepository) scanAccount(row pgx.Row) (*Account, error) {
	account := &Account{}
	err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.DepartmentID,
		&account.FailedAttempts,
		&account.Locked,
		&account.CreatedAt,
		&account.LastLoginAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return account, nil
}
