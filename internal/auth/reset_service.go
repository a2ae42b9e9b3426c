package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/docsflow/backend/internal/repository"
)

// resetTokenBcryptCost is deliberately lower than the password cost: token
// validation scans the unexpired working set and verifies each candidate,
// and the raw value is already high-entropy.
const resetTokenBcryptCost = bcrypt.DefaultCost

// ResetTokenManager issues, validates and consumes single-use, time-limited
// password-reset tokens. The raw value is returned exactly once at issuance;
// only its bcrypt hash is persisted.
type ResetTokenManager struct {
	tokens repository.ResetTokenRepository
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewResetTokenManager creates a new ResetTokenManager instance
func NewResetTokenManager(tokens repository.ResetTokenRepository, ttl time.Duration, logger *slog.Logger) *ResetTokenManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResetTokenManager{
		tokens: tokens,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Issue generates a random token for the account, stores its hash with the
// configured expiry and returns the raw value for one-time email delivery.
func (m *ResetTokenManager) Issue(ctx context.Context, accountID int64) (string, error) {
	raw := uuid.NewString()

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), resetTokenBcryptCost)
	if err != nil {
		return "", err
	}

	row := &repository.PasswordReset{
		AccountID: accountID,
		TokenHash: string(hash),
		ExpiresAt: m.now().UTC().Add(m.ttl),
	}

	if err := m.tokens.Create(ctx, row); err != nil {
		return "", err
	}

	return raw, nil
}

// Validate locates the stored row matching the raw token. The hash is salted
// per issuance, so the store is not indexable by raw value; lookup is a scan
// over the small unexpired working set. Expired tokens never validate, purged
// or not.
func (m *ResetTokenManager) Validate(ctx context.Context, rawToken string) (*repository.PasswordReset, error) {
	if rawToken == "" {
		return nil, ErrInvalidResetToken
	}

	now := m.now().UTC()
	candidates, err := m.tokens.ListUnexpired(ctx, now)
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		row := &candidates[i]
		if bcrypt.CompareHashAndPassword([]byte(row.TokenHash), []byte(rawToken)) != nil {
			continue
		}
		if row.Expired(now) {
			return nil, ErrInvalidResetToken
		}
		return row, nil
	}

	return nil, ErrInvalidResetToken
}

// Consume deletes the token row so it can never validate again. Called only
// after the new password is durably written. A row that is already gone means
// another request consumed it; that is reported as an invalid token, never as
// a second success.
func (m *ResetTokenManager) Consume(ctx context.Context, row *repository.PasswordReset) error {
	if err := m.tokens.Delete(ctx, row.ID); err != nil {
		if errors.Is(err, repository.ErrResetTokenNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	return nil
}

// CleanupExpired purges expired rows. Best-effort housekeeping: expiry is
// enforced at validation time regardless.
func (m *ResetTokenManager) CleanupExpired(ctx context.Context) (int64, error) {
	return m.tokens.DeleteExpired(ctx, m.now().UTC())
}

// StartCleanup runs CleanupExpired on a fixed interval until ctx is done
func (m *ResetTokenManager) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				purged, err := m.CleanupExpired(ctx)
				if err != nil {
					m.logger.Warn("reset token cleanup failed", "error", err)
					continue
				}
				if purged > 0 {
					m.logger.Info("purged expired reset tokens", "count", purged)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
