package repository

import (
	"time"
)

// Account roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account represents a user account in the database
type Account struct {
	ID             int64      `db:"id"`
	Name           string     `db:"name"`
	Email          string     `db:"email"`
	PasswordHash   string     `db:"password_hash"`
	Role           string     `db:"role"`
	DepartmentID   *int64     `db:"department_id"`
	FailedAttempts int        `db:"failed_attempts"`
	Locked         bool       `db:"locked"`
	CreatedAt      time.Time  `db:"created_at"`
	LastLoginAt    *time.Time `db:"last_login_at"`
}

// PasswordReset represents a stored password-reset token. Only the
// bcrypt hash of the raw token is ever persisted.
type PasswordReset struct {
	ID        int64     `db:"id"`
	AccountID int64     `db:"account_id"`
	TokenHash string    `db:"token_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// Expired reports whether the token is past its expiry at the given time.
func (p *PasswordReset) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
