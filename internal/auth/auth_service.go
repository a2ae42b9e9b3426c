package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/docsflow/backend/internal/metrics"
	"github.com/docsflow/backend/internal/notifier"
	"github.com/docsflow/backend/internal/repository"
)

// Auth service errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account locked")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrPasswordMismatch   = errors.New("new_password and confirm_password do not match")
	ErrInvalidUnlockToken = errors.New("invalid or expired unlock token")
	ErrAccountNotFound    = errors.New("account not found")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrInvalidRole        = errors.New("invalid role")
	ErrTokenRevoked       = errors.New("token has been revoked")

	// ErrRevocationUnavailable marks a revocation-store outage. Callers must
	// surface it as a dependency failure, never as bad credentials.
	ErrRevocationUnavailable = errors.New("revocation store unavailable")
)

// Error codes for API responses
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountLocked      = "ACCOUNT_LOCKED"
	CodeInvalidResetToken  = "INVALID_RESET_TOKEN"
	CodePasswordMismatch   = "PASSWORD_MISMATCH"
	CodeInvalidUnlockToken = "INVALID_UNLOCK_TOKEN"
	CodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	CodeEmailExists        = "EMAIL_EXISTS"
	CodeAuthTokenMissing   = "AUTH_TOKEN_MISSING"
	CodeAuthTokenInvalid   = "AUTH_TOKEN_INVALID"
)

// resetAckMessage is returned for every forgot-password request, whether or
// not the email exists, to prevent account enumeration.
const resetAckMessage = "If the email exists, a password reset link has been sent."

// AuthService orchestrates credential verification, lockout policy, session
// issuance and the password-reset and unlock flows.
type AuthService struct {
	accounts   repository.AccountRepository
	hasher     *PasswordHasher
	tokens     *TokenService
	resets     *ResetTokenManager
	lockout    *LockoutPolicy
	revocation RevocationStore
	notifier   notifier.Notifier
	logger     *slog.Logger
}

// NewAuthService creates a new AuthService instance
func NewAuthService(
	accounts repository.AccountRepository,
	hasher *PasswordHasher,
	tokens *TokenService,
	resets *ResetTokenManager,
	lockout *LockoutPolicy,
	revocation RevocationStore,
	n notifier.Notifier,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		accounts:   accounts,
		hasher:     hasher,
		tokens:     tokens,
		resets:     resets,
		lockout:    lockout,
		revocation: revocation,
		notifier:   n,
		logger:     logger,
	}
}

// LoginResponse carries the issued session token
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Login verifies credentials and issues a session token. The gates run in a
// fixed order: account lookup, lock check, password verification, lockout
// transition, token issuance. A locked account is rejected before the
// password is checked, so the response never leaks whether the supplied
// password was correct.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			// Same message as a wrong password to prevent enumeration.
			metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if account.Locked {
		metrics.LoginAttemptsTotal.WithLabelValues("locked").Inc()
		return nil, ErrAccountLocked
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		err := s.lockout.OnFailedAttempt(ctx, account)
		if errors.Is(err, ErrAccountLocked) {
			metrics.LoginAttemptsTotal.WithLabelValues("locked").Inc()
		} else if errors.Is(err, ErrInvalidCredentials) {
			metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		}
		return nil, err
	}

	if err := s.lockout.OnSuccess(ctx, account); err != nil {
		return nil, err
	}

	if err := s.accounts.UpdateLastLogin(ctx, account.ID); err != nil {
		s.logger.Warn("failed to update last login", "account_id", account.ID, "error", err)
	}

	token, err := s.tokens.IssueSessionToken(account.ID, account.Role)
	if err != nil {
		return nil, err
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()

	return &LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.SessionTTL().Seconds()),
	}, nil
}

// VerifySession validates a bearer token: signature, expiry, and absence
// from the revocation set.
func (s *AuthService) VerifySession(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.tokens.ValidateSessionToken(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocation.IsRevoked(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

// Logout revokes a session token. Idempotent: revoking an already revoked or
// invalid token still acknowledges, and revoking one token never affects
// other sessions of the same account.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.ValidateSessionToken(token)
	if err != nil {
		// Expired or malformed tokens have nothing left to revoke.
		return nil
	}

	if err := s.revocation.Revoke(ctx, token, s.tokens.RemainingTTL(claims)); err != nil {
		return err
	}

	metrics.RevokedSessionsTotal.Inc()
	return nil
}

// ForgotPassword issues a reset token and emails the link. The caller always
// gets the same generic acknowledgement; for an unknown email no token is
// created and no mail is sent.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil
		}
		return err
	}

	raw, err := s.resets.Issue(ctx, account.ID)
	if err != nil {
		return err
	}

	metrics.ResetTokensIssuedTotal.Inc()

	if err := s.notifier.SendResetLink(ctx, account.Email, raw); err != nil {
		// The token is already stored; delivery failure must not abort the
		// acknowledgement.
		s.logger.Error("failed to send reset link", "account_id", account.ID, "error", err)
	}

	return nil
}

// ResetPassword consumes a reset token and writes the new password. The
// token row is deleted only after the password write commits; a second
// consume of the same raw token reports an invalid token.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}

	row, err := s.resets.Validate(ctx, rawToken)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.accounts.UpdatePassword(ctx, row.AccountID, hash); err != nil {
		return err
	}

	if err := s.resets.Consume(ctx, row); err != nil {
		return err
	}

	metrics.ResetTokensConsumedTotal.Inc()
	s.logger.Info("password reset completed", "account_id", row.AccountID)

	return nil
}

// UnlockAccount consumes an administrator unlock token. The token is
// single-use: it is added to the revocation set on first acceptance, whether
// or not the account was still locked.
func (s *AuthService) UnlockAccount(ctx context.Context, rawToken string) (*UnlockResult, error) {
	claims, err := s.tokens.ValidateUnlockToken(rawToken)
	if err != nil {
		return nil, ErrInvalidUnlockToken
	}

	revoked, err := s.revocation.IsRevoked(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
	}
	if revoked {
		return nil, ErrInvalidUnlockToken
	}

	accountID, err := claims.AccountID()
	if err != nil {
		return nil, ErrInvalidUnlockToken
	}

	result, err := s.lockout.Unlock(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	if err := s.revocation.Revoke(ctx, rawToken, s.tokens.RemainingTTL(claims)); err != nil {
		return nil, err
	}

	return result, nil
}

// RegisterRequest represents an administrator-driven account creation
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	// bcrypt only keys on the first 72 bytes, longer inputs are rejected
	// rather than silently truncated.
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role"`
}

// AccountResponse represents account data in responses
type AccountResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Register creates a new account. Exposed to administrators only; the route
// guard enforces the role.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AccountResponse, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	role := req.Role
	if role == "" {
		role = repository.RoleUser
	}
	if role != repository.RoleUser && role != repository.RoleAdmin {
		return nil, ErrInvalidRole
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	account := &repository.Account{
		Name:         req.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrEmailAlreadyExists) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	return &AccountResponse{
		ID:    account.ID,
		Name:  account.Name,
		Email: account.Email,
		Role:  account.Role,
	}, nil
}

// GetAccount returns the account behind a verified session
func (s *AuthService) GetAccount(ctx context.Context, accountID int64) (*AccountResponse, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return &AccountResponse{
		ID:    account.ID,
		Name:  account.Name,
		Email: account.Email,
		Role:  account.Role,
	}, nil
}

// isValidEmail checks if the email format is valid
func isValidEmail(email string) bool {
	if email == "" {
		return false
	}
	_, err := mail.ParseAddress(email)
	return err == nil
}
