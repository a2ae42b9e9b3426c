package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/docsflow/backend/internal/repository"
	"pgregory.net/rapid"
)

// Mock implementations for testing

// mockAccountRepository implements repository.AccountRepository for testing
type mockAccountRepository struct {
	mu       sync.Mutex
	accounts map[int64]*repository.Account
	nextID   int64
}

func newMockAccountRepository() *mockAccountRepository {
	return &mockAccountRepository{
		accounts: make(map[int64]*repository.Account),
		nextID:   1,
	}
}

func (m *mockAccountRepository) Create(ctx context.Context, account *repository.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(account.Email)
	for _, a := range m.accounts {
		if a.Email == email {
			return repository.ErrEmailAlreadyExists
		}
	}

	account.ID = m.nextID
	m.nextID++
	account.Email = email
	account.CreatedAt = time.Now().UTC()
	m.accounts[account.ID] = account
	return nil
}

func (m *mockAccountRepository) GetByID(ctx context.Context, id int64) (*repository.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (m *mockAccountRepository) GetByEmail(ctx context.Context, email string) (*repository.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email = strings.ToLower(email)
	for _, account := range m.accounts {
		if account.Email == email {
			copied := *account
			return &copied, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (m *mockAccountRepository) UpdatePassword(ctx context.Context, id int64, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	account.PasswordHash = newHash
	return nil
}

func (m *mockAccountRepository) IncrementFailedAttempts(ctx context.Context, id int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return 0, repository.ErrAccountNotFound
	}
	account.FailedAttempts++
	return account.FailedAttempts, nil
}

func (m *mockAccountRepository) ResetFailedAttempts(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	account.FailedAttempts = 0
	return nil
}

func (m *mockAccountRepository) SetLocked(ctx context.Context, id int64, locked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	account.Locked = locked
	return nil
}

func (m *mockAccountRepository) UpdateLastLogin(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	now := time.Now().UTC()
	account.LastLoginAt = &now
	return nil
}

// mockResetTokenRepository implements repository.ResetTokenRepository for testing
type mockResetTokenRepository struct {
	mu     sync.Mutex
	rows   map[int64]*repository.PasswordReset
	nextID int64
}

func newMockResetTokenRepository() *mockResetTokenRepository {
	return &mockResetTokenRepository{
		rows:   make(map[int64]*repository.PasswordReset),
		nextID: 1,
	}
}

func (m *mockResetTokenRepository) Create(ctx context.Context, token *repository.PasswordReset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	token.ID = m.nextID
	m.nextID++
	token.CreatedAt = time.Now().UTC()
	copied := *token
	m.rows[token.ID] = &copied
	return nil
}

func (m *mockResetTokenRepository) ListUnexpired(ctx context.Context, now time.Time) ([]repository.PasswordReset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []repository.PasswordReset
	for _, row := range m.rows {
		if row.ExpiresAt.After(now) {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (m *mockResetTokenRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rows[id]; !ok {
		return repository.ErrResetTokenNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *mockResetTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var purged int64
	for id, row := range m.rows {
		if !row.ExpiresAt.After(before) {
			delete(m.rows, id)
			purged++
		}
	}
	return purged, nil
}

func (m *mockResetTokenRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// mockNotifier captures outbound mail instead of sending it
type mockNotifier struct {
	mu            sync.Mutex
	resetLinks    []sentResetLink
	lockoutAlerts []sentLockoutAlert
}

type sentResetLink struct {
	email    string
	rawToken string
}

type sentLockoutAlert struct {
	adminEmail   string
	accountEmail string
	unlockToken  string
}

func (m *mockNotifier) SendResetLink(ctx context.Context, email, rawToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLinks = append(m.resetLinks, sentResetLink{email: email, rawToken: rawToken})
	return nil
}

func (m *mockNotifier) SendLockoutAlert(ctx context.Context, adminEmail, accountEmail, unlockToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockoutAlerts = append(m.lockoutAlerts, sentLockoutAlert{
		adminEmail:   adminEmail,
		accountEmail: accountEmail,
		unlockToken:  unlockToken,
	})
	return nil
}

func (m *mockNotifier) lastResetLink() (sentResetLink, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.resetLinks) == 0 {
		return sentResetLink{}, false
	}
	return m.resetLinks[len(m.resetLinks)-1], true
}

func (m *mockNotifier) lastLockoutAlert() (sentLockoutAlert, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.lockoutAlerts) == 0 {
		return sentLockoutAlert{}, false
	}
	return m.lockoutAlerts[len(m.lockoutAlerts)-1], true
}

const (
	testMaxAttempts = 5
	testResetTTL    = time.Hour
	testAdminEmail  = "admin@docsflow.test"
)

type testEnv struct {
	service  *AuthService
	accounts *mockAccountRepository
	resets   *mockResetTokenRepository
	notifier *mockNotifier
	tokens   *TokenService
	manager  *ResetTokenManager
	lockout  *LockoutPolicy
}

// testingT is the subset of testing.TB that *rapid.T also implements, so
// newTestEnv can serve both regular and property-based tests.
type testingT interface {
	Helper()
	Cleanup(func())
}

func newTestEnv(t testingT) *testEnv {
	t.Helper()

	accounts := newMockAccountRepository()
	resets := newMockResetTokenRepository()
	n := &mockNotifier{}

	tokens := NewTokenService(TokenServiceConfig{
		Secret:     "test-secret-that-is-long-enough",
		SessionTTL: 24 * time.Hour,
		UnlockTTL:  24 * time.Hour,
		Issuer:     "docsflow-test",
	})

	manager := NewResetTokenManager(resets, testResetTTL, nil)
	lockout := NewLockoutPolicy(accounts, tokens, n, testMaxAttempts, testAdminEmail, nil)

	revocation := NewMemoryRevocationStore(time.Hour)
	t.Cleanup(revocation.Close)

	service := NewAuthService(accounts, NewPasswordHasher(), tokens, manager, lockout, revocation, n, nil)

	return &testEnv{
		service:  service,
		accounts: accounts,
		resets:   resets,
		notifier: n,
		tokens:   tokens,
		manager:  manager,
		lockout:  lockout,
	}
}

// hashedTestPassword caches one bcrypt hash so every test does not pay the
// full cost factor repeatedly.
var (
	hashOnce       sync.Once
	cachedPassword = "CorrectHorse1!"
	cachedHash     string
)

func testPasswordHash(t testing.TB) string {
	t.Helper()
	hashOnce.Do(func() {
		hash, err := NewPasswordHasher().Hash(cachedPassword)
		if err != nil {
			t.Fatalf("failed to hash test password: %v", err)
		}
		cachedHash = hash
	})
	return cachedHash
}

func (e *testEnv) createAccount(t testing.TB, email string) *repository.Account {
	t.Helper()

	account := &repository.Account{
		Name:         "Test Account",
		Email:        email,
		PasswordHash: testPasswordHash(t),
		Role:         repository.RoleUser,
	}
	if err := e.accounts.Create(context.Background(), account); err != nil {
		t.Fatalf("failed to create account: %v", err)
	}
	return account
}

func TestLogin_ValidCredentials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createAccount(t, "alice@docsflow.test")

	resp, err := env.service.Login(ctx, "alice@docsflow.test", cachedPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if resp.AccessToken == "" {
		t.Error("access token should not be empty")
	}
	if resp.TokenType != "bearer" {
		t.Errorf("token type should be bearer, got %s", resp.TokenType)
	}
	if resp.ExpiresIn != int64((24 * time.Hour).Seconds()) {
		t.Errorf("unexpected expires_in: %d", resp.ExpiresIn)
	}

	claims, err := env.tokens.ValidateSessionToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("issued token failed validation: %v", err)
	}
	if claims.Role != repository.RoleUser {
		t.Errorf("claims role should be user, got %s", claims.Role)
	}

	stored, _ := env.accounts.GetByEmail(ctx, "alice@docsflow.test")
	if stored.LastLoginAt == nil {
		t.Error("last_login_at should be set after login")
	}
}

func TestLogin_EmailIsCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	env.createAccount(t, "carol@docsflow.test")

	if _, err := env.service.Login(context.Background(), "  Carol@DocsFlow.Test ", cachedPassword); err != nil {
		t.Fatalf("login with differently-cased email failed: %v", err)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Login(context.Background(), "nobody@docsflow.test", "whatever")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_WrongPasswordIncrementsCounter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.createAccount(t, "bob@docsflow.test")

	_, err := env.service.Login(ctx, "bob@docsflow.test", "wrong-password")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	stored, _ := env.accounts.GetByID(ctx, account.ID)
	if stored.FailedAttempts != 1 {
		t.Errorf("failed_attempts should be 1, got %d", stored.FailedAttempts)
	}
	if stored.Locked {
		t.Error("account should not be locked after a single failure")
	}
}

func TestLogin_FifthFailureLocksAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.createAccount(t, "dave@docsflow.test")

	// The first four failures report invalid credentials.
	for i := 1; i < testMaxAttempts; i++ {
		_, err := env.service.Login(ctx, "dave@docsflow.test", "wrong-password")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	// The fifth reports the lock, not another invalid-credentials error.
	_, err := env.service.Login(ctx, "dave@docsflow.test", "wrong-password")
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("locking attempt: expected ErrAccountLocked, got %v", err)
	}

	stored, _ := env.accounts.GetByID(ctx, account.ID)
	if !stored.Locked {
		t.Error("account should be locked")
	}
	if stored.FailedAttempts != testMaxAttempts {
		t.Errorf("failed_attempts should be %d, got %d", testMaxAttempts, stored.FailedAttempts)
	}

	alert, ok := env.notifier.lastLockoutAlert()
	if !ok {
		t.Fatal("lockout alert should have been sent")
	}
	if alert.adminEmail != testAdminEmail {
		t.Errorf("alert should go to the admin, got %s", alert.adminEmail)
	}
	if alert.accountEmail != "dave@docsflow.test" {
		t.Errorf("alert should name the locked account, got %s", alert.accountEmail)
	}
	if alert.unlockToken == "" {
		t.Error("alert should carry an unlock token")
	}
	if _, err := env.tokens.ValidateUnlockToken(alert.unlockToken); err != nil {
		t.Errorf("alert unlock token should validate: %v", err)
	}
}

func TestLogin_LockedAccountRejectsCorrectPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.createAccount(t, "erin@docsflow.test")

	if err := env.accounts.SetLocked(ctx, account.ID, true); err != nil {
		t.Fatal(err)
	}

	_, err := env.service.Login(ctx, "erin@docsflow.test", cachedPassword)
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked even with the correct password, got %v", err)
	}

	// No counter movement either; the attempt never reaches verification.
	stored, _ := env.accounts.GetByID(ctx, account.ID)
	if stored.FailedAttempts != 0 {
		t.Errorf("failed_attempts should stay 0, got %d", stored.FailedAttempts)
	}
}

func TestLogin_SuccessResetsFailedAttempts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.createAccount(t, "frank@docsflow.test")

	for i := 0; i < 3; i++ {
		env.service.Login(ctx, "frank@docsflow.test", "wrong-password")
	}

	if _, err := env.service.Login(ctx, "frank@docsflow.test", cachedPassword); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	stored, _ := env.accounts.GetByID(ctx, account.ID)
	if stored.FailedAttempts != 0 {
		t.Errorf("failed_attempts should reset to 0 after success, got %d", stored.FailedAttempts)
	}

	// The counter starts from scratch afterwards: one more failure is 1,
	// not 4.
	env.service.Login(ctx, "frank@docsflow.test", "wrong-password")
	stored, _ = env.accounts.GetByID(ctx, account.ID)
	if stored.FailedAttempts != 1 {
		t.Errorf("failed_attempts should be 1, got %d", stored.FailedAttempts)
	}
}

func TestOnSuccess_ClearsFailuresRacingTheLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.createAccount(t, "hana@docsflow.test")

	// The login-time snapshot saw a clean counter.
	snapshot := *account

	// A concurrent wrong-password attempt lands before the success commits.
	if _, err := env.accounts.IncrementFailedAttempts(ctx, account.ID); err != nil {
		t.Fatal(err)
	}

	if err := env.lockout.OnSuccess(ctx, &snapshot); err != nil {
		t.Fatal(err)
	}

	stored, _ := env.accounts.GetByID(ctx, account.ID)
	if stored.FailedAttempts != 0 {
		t.Errorf("reset must not trust the stale snapshot, got %d failed attempts", stored.FailedAttempts)
	}
}

func TestLogout_RevokesOnlyThatSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createAccount(t, "grace@docsflow.test")

	first, err := env.service.Login(ctx, "grace@docsflow.test", cachedPassword)
	if err != nil {
		t.Fatal(err)
	}
	second, err := env.service.Login(ctx, "grace@docsflow.test", cachedPassword)
	if err != nil {
		t.Fatal(err)
	}
	if first.AccessToken == second.AccessToken {
		t.Fatal("two logins should issue distinct tokens")
	}

	if err := env.service.Logout(ctx, first.AccessToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	if _, err := env.service.VerifySession(ctx, first.AccessToken); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("revoked token should fail verification with ErrTokenRevoked, got %v", err)
	}
	if _, err := env.service.VerifySession(ctx, second.AccessToken); err != nil {
		t.Errorf("the other session should remain valid: %v", err)
	}
}

func TestLogout_InvalidTokenStillAcknowledges(t *testing.T) {
	env := newTestEnv(t)

	if err := env.service.Logout(context.Background(), "not-a-token"); err != nil {
		t.Fatalf("logout of an invalid token should be a no-op, got %v", err)
	}
}

func TestForgotPassword_UnknownEmailIsSilent(t *testing.T) {
	env := newTestEnv(t)

	if err := env.service.ForgotPassword(context.Background(), "ghost@docsflow.test"); err != nil {
		t.Fatalf("unknown email should still acknowledge: %v", err)
	}
	if env.resets.count() != 0 {
		t.Error("no reset token should be stored for an unknown email")
	}
	if _, ok := env.notifier.lastResetLink(); ok {
		t.Error("no mail should be sent for an unknown email")
	}
}

func TestForgotPassword_StoresHashNotRawToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.createAccount(t, "heidi@docsflow.test")

	if err := env.service.ForgotPassword(ctx, "heidi@docsflow.test"); err != nil {
		t.Fatal(err)
	}

	link, ok := env.notifier.lastResetLink()
	if !ok {
		t.Fatal("reset link should have been sent")
	}
	if link.email != "heidi@docsflow.test" {
		t.Errorf("link sent to wrong address: %s", link.email)
	}
	if link.rawToken == "" {
		t.Fatal("raw token should not be empty")
	}

	rows, _ := env.resets.ListUnexpired(ctx, time.Now().UTC())
	if len(rows) != 1 {
		t.Fatalf("expected 1 stored row, got %d", len(rows))
	}
	if rows[0].TokenHash == link.rawToken {
		t.Error("raw token must never be stored")
	}
	if rows[0].AccountID != account.ID {
		t.Errorf("row bound to wrong account: %d", rows[0].AccountID)
	}

	remaining := time.Until(rows[0].ExpiresAt)
	if remaining < testResetTTL-time.Minute || remaining > testResetTTL {
		t.Errorf("expiry should be about %v out, got %v", testResetTTL, remaining)
	}
}

func TestResetPassword_FullFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createAccount(t, "ivan@docsflow.test")

	if err := env.service.ForgotPassword(ctx, "ivan@docsflow.test"); err != nil {
		t.Fatal(err)
	}
	link, _ := env.notifier.lastResetLink()

	newPassword := "BrandNewSecret9"
	if err := env.service.ResetPassword(ctx, link.rawToken, newPassword, newPassword); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	// Old password no longer works, new one does.
	if _, err := env.service.Login(ctx, "ivan@docsflow.test", cachedPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password should be rejected, got %v", err)
	}
	if _, err := env.service.Login(ctx, "ivan@docsflow.test", newPassword); err != nil {
		t.Errorf("new password should work: %v", err)
	}

	// The token was consumed; a second use is an invalid token, not a
	// second password change.
	err := env.service.ResetPassword(ctx, link.rawToken, "AnotherSecret10", "AnotherSecret10")
	if !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("second consume should report ErrInvalidResetToken, got %v", err)
	}
	if _, err := env.service.Login(ctx, "ivan@docsflow.test", newPassword); err != nil {
		t.Errorf("password should be unchanged after the rejected reuse: %v", err)
	}
}

func TestResetPassword_MismatchCheckedFirst(t *testing.T) {
	env := newTestEnv(t)

	// Mismatch wins even when the token is garbage.
	err := env.service.ResetPassword(context.Background(), "garbage", "oneSecret123", "otherSecret123")
	if !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createAccount(t, "judy@docsflow.test")

	base := time.Now().UTC()
	env.manager.now = func() time.Time { return base }

	if err := env.service.ForgotPassword(ctx, "judy@docsflow.test"); err != nil {
		t.Fatal(err)
	}
	link, _ := env.notifier.lastResetLink()

	// Just inside the window the token still validates.
	env.manager.now = func() time.Time { return base.Add(testResetTTL - time.Second) }
	if _, err := env.manager.Validate(ctx, link.rawToken); err != nil {
		t.Fatalf("token should still be valid inside the window: %v", err)
	}

	// Just past the window it does not, purged or not.
	env.manager.now = func() time.Time { return base.Add(testResetTTL + time.Second) }
	err := env.service.ResetPassword(ctx, link.rawToken, "FreshSecret11", "FreshSecret11")
	if !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expired token should report ErrInvalidResetToken, got %v", err)
	}
}

func TestUnlockAccount_FullFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.createAccount(t, "mallory@docsflow.test")

	for i := 0; i < testMaxAttempts; i++ {
		env.service.Login(ctx, "mallory@docsflow.test", "wrong-password")
	}
	alert, ok := env.notifier.lastLockoutAlert()
	if !ok {
		t.Fatal("account should have locked and alerted")
	}

	result, err := env.service.UnlockAccount(ctx, alert.unlockToken)
	if err != nil {
		t.Fatalf("unlock failed: %v", err)
	}
	if !result.WasLocked {
		t.Error("result should report the account was locked")
	}
	if result.AccountID != account.ID {
		t.Errorf("unlocked the wrong account: %d", result.AccountID)
	}

	stored, _ := env.accounts.GetByID(ctx, account.ID)
	if stored.Locked {
		t.Error("account should be unlocked")
	}
	if stored.FailedAttempts != 0 {
		t.Errorf("failed_attempts should be cleared, got %d", stored.FailedAttempts)
	}

	if _, err := env.service.Login(ctx, "mallory@docsflow.test", cachedPassword); err != nil {
		t.Errorf("login should work again after unlock: %v", err)
	}

	// The unlock token is single-use.
	if _, err := env.service.UnlockAccount(ctx, alert.unlockToken); !errors.Is(err, ErrInvalidUnlockToken) {
		t.Fatalf("reused unlock token should report ErrInvalidUnlockToken, got %v", err)
	}
}

func TestUnlockAccount_NotLocked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.createAccount(t, "oscar@docsflow.test")

	token, err := env.tokens.IssueUnlockToken(account.ID)
	if err != nil {
		t.Fatal(err)
	}

	result, err := env.service.UnlockAccount(ctx, token)
	if err != nil {
		t.Fatalf("unlock of an active account should succeed as a no-op: %v", err)
	}
	if result.WasLocked {
		t.Error("result should report the account was not locked")
	}
}

func TestUnlockAccount_RejectsSessionToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createAccount(t, "peggy@docsflow.test")

	resp, err := env.service.Login(ctx, "peggy@docsflow.test", cachedPassword)
	if err != nil {
		t.Fatal(err)
	}

	// A session token must not act as an unlock capability.
	if _, err := env.service.UnlockAccount(ctx, resp.AccessToken); !errors.Is(err, ErrInvalidUnlockToken) {
		t.Fatalf("expected ErrInvalidUnlockToken, got %v", err)
	}
}

func TestUnlockAccount_GarbageToken(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.service.UnlockAccount(context.Background(), "garbage"); !errors.Is(err, ErrInvalidUnlockToken) {
		t.Fatalf("expected ErrInvalidUnlockToken, got %v", err)
	}
}

func TestRegister_DefaultsToUserRole(t *testing.T) {
	env := newTestEnv(t)

	account, err := env.service.Register(context.Background(), RegisterRequest{
		Name:     "New Person",
		Email:    "new@docsflow.test",
		Password: "InitialPass12",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if account.Role != repository.RoleUser {
		t.Errorf("role should default to user, got %s", account.Role)
	}
	if account.ID == 0 {
		t.Error("account should receive an id")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := RegisterRequest{Name: "A", Email: "dup@docsflow.test", Password: "InitialPass12"}
	if _, err := env.service.Register(ctx, req); err != nil {
		t.Fatal(err)
	}

	_, err := env.service.Register(ctx, req)
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestRegister_InvalidInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.service.Register(ctx, RegisterRequest{Name: "A", Email: "not-an-email", Password: "InitialPass12"}); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := env.service.Register(ctx, RegisterRequest{Name: "A", Email: "ok@docsflow.test", Password: "InitialPass12", Role: "superuser"}); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("expected ErrInvalidRole, got %v", err)
	}
}

// Unknown emails never authenticate, whatever the password, and the error is
// indistinguishable from a wrong password.
func TestUnknownEmailsNeverAuthenticate(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		env := newTestEnv(t)

		email := rapid.StringMatching(`[a-z]{3,12}@[a-z]{3,12}\.[a-z]{2,3}`).Draw(t, "email")
		password := rapid.String().Draw(t, "password")

		resp, err := env.service.Login(context.Background(), email, password)
		if resp != nil {
			t.Fatal("no token must be issued for an unknown email")
		}
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

// Tokens that were never issued do not validate against the reset store.
func TestUninvitedResetTokensNeverValidate(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		env := newTestEnv(t)

		raw := rapid.String().Draw(t, "raw")
		if _, err := env.manager.Validate(context.Background(), raw); !errors.Is(err, ErrInvalidResetToken) {
			t.Fatalf("expected ErrInvalidResetToken, got %v", err)
		}
	})
}
