package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/docsflow/backend/internal/metrics"
	"github.com/docsflow/backend/internal/notifier"
	"github.com/docsflow/backend/internal/repository"
)

// notifyTimeout bounds the out-of-band alert dispatch so a slow mail relay
// cannot hold resources past the request that triggered it.
const notifyTimeout = 30 * time.Second

// LockoutPolicy owns the per-account failed-attempt counter and lock flag.
// No other component mutates them. An account is either ACTIVE with a
// counter, or LOCKED; reaching the threshold flips it to LOCKED and alerts
// the administrator with an unlock token.
type LockoutPolicy struct {
	accounts    repository.AccountRepository
	tokens      *TokenService
	notifier    notifier.Notifier
	maxAttempts int
	adminEmail  string
	logger      *slog.Logger
}

// NewLockoutPolicy creates a new LockoutPolicy instance
func NewLockoutPolicy(
	accounts repository.AccountRepository,
	tokens *TokenService,
	n notifier.Notifier,
	maxAttempts int,
	adminEmail string,
	logger *slog.Logger,
) *LockoutPolicy {
	if logger == nil {
		logger = slog.Default()
	}
	return &LockoutPolicy{
		accounts:    accounts,
		tokens:      tokens,
		notifier:    n,
		maxAttempts: maxAttempts,
		adminEmail:  adminEmail,
		logger:      logger,
	}
}

// OnFailedAttempt records a wrong password against an active account and
// returns the error the caller must surface: ErrInvalidCredentials below the
// threshold, ErrAccountLocked from the locking attempt on. The increment is
// atomic at the data layer, so concurrent failures each observe a distinct
// count.
func (p *LockoutPolicy) OnFailedAttempt(ctx context.Context, account *repository.Account) error {
	count, err := p.accounts.IncrementFailedAttempts(ctx, account.ID)
	if err != nil {
		return err
	}

	if count < p.maxAttempts {
		return ErrInvalidCredentials
	}

	if err := p.accounts.SetLocked(ctx, account.ID, true); err != nil {
		return err
	}

	metrics.AccountLockoutsTotal.Inc()
	p.logger.Warn("account locked after repeated failed logins",
		"account_id", account.ID,
		"failed_attempts", count,
	)

	// The lock decision stands whether or not the alert goes out.
	p.dispatchLockoutAlert(ctx, account)

	return ErrAccountLocked
}

// OnSuccess resets the failed-attempt counter after a correct password. The
// reset is unconditional: the login-time snapshot may be stale when a
// concurrent failure lands between lookup and success.
func (p *LockoutPolicy) OnSuccess(ctx context.Context, account *repository.Account) error {
	return p.accounts.ResetFailedAttempts(ctx, account.ID)
}

// UnlockResult reports what an administrator unlock actually did
type UnlockResult struct {
	AccountID    int64
	AccountEmail string
	WasLocked    bool
}

// Unlock transitions a locked account back to active and clears the counter.
// Unlocking an account that was never locked is a no-op reported distinctly.
func (p *LockoutPolicy) Unlock(ctx context.Context, accountID int64) (*UnlockResult, error) {
	account, err := p.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	result := &UnlockResult{
		AccountID:    account.ID,
		AccountEmail: account.Email,
		WasLocked:    account.Locked,
	}

	if !account.Locked {
		return result, nil
	}

	if err := p.accounts.SetLocked(ctx, account.ID, false); err != nil {
		return nil, err
	}
	if err := p.accounts.ResetFailedAttempts(ctx, account.ID); err != nil {
		return nil, err
	}

	metrics.AccountUnlocksTotal.Inc()
	p.logger.Info("account unlocked by administrator", "account_id", account.ID)

	return result, nil
}

// dispatchLockoutAlert mints an unlock token and emails it to the
// administrator. Fire-and-forget: failures are logged, never propagated.
func (p *LockoutPolicy) dispatchLockoutAlert(ctx context.Context, account *repository.Account) {
	if p.adminEmail == "" {
		p.logger.Warn("no admin email configured, skipping lockout alert", "account_id", account.ID)
		return
	}

	unlockToken, err := p.tokens.IssueUnlockToken(account.ID)
	if err != nil {
		p.logger.Error("failed to issue unlock token", "account_id", account.ID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	if err := p.notifier.SendLockoutAlert(ctx, p.adminEmail, account.Email, unlockToken); err != nil {
		p.logger.Error("failed to send lockout alert", "account_id", account.ID, "error", err)
	}
}
