package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType represents the purpose of a signed token
type TokenType string

const (
	// SessionTokenType marks bearer tokens issued on login
	SessionTokenType TokenType = "session"
	// UnlockTokenType marks single-use administrator unlock tokens
	UnlockTokenType TokenType = "unlock"
)

// Claims represents the JWT claims structure
type Claims struct {
	Role string    `json:"role,omitempty"`
	Type TokenType `json:"type"`
	jwt.RegisteredClaims
}

// AccountID returns the numeric account id from the Subject claim
func (c *Claims) AccountID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// TokenService mints and validates the signed, expiring tokens used by the
// auth flows. Tokens are self-contained; revocation lives in RevocationStore.
type TokenService struct {
	secret     []byte
	sessionTTL time.Duration
	unlockTTL  time.Duration
	issuer     string
}

// TokenServiceConfig holds configuration for TokenService
type TokenServiceConfig struct {
	Secret     string
	SessionTTL time.Duration
	UnlockTTL  time.Duration
	Issuer     string
}

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg TokenServiceConfig) *TokenService {
	return &TokenService{
		secret:     []byte(cfg.Secret),
		sessionTTL: cfg.SessionTTL,
		unlockTTL:  cfg.UnlockTTL,
		issuer:     cfg.Issuer,
	}
}

// IssueSessionToken generates a signed bearer token for an authenticated account
func (s *TokenService) IssueSessionToken(accountID int64, role string) (string, error) {
	return s.issue(accountID, role, SessionTokenType, s.sessionTTL)
}

// IssueUnlockToken generates the single-use capability delivered to the
// administrator when an account locks. It expires like a session token and
// is consumed through the revocation store on first use.
func (s *TokenService) IssueUnlockToken(accountID int64) (string, error) {
	return s.issue(accountID, "", UnlockTokenType, s.unlockTTL)
}

func (s *TokenService) issue(accountID int64, role string, typ TokenType, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		Role: role,
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(accountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateSessionToken validates a session token and returns the claims
func (s *TokenService) ValidateSessionToken(tokenString string) (*Claims, error) {
	return s.validateToken(tokenString, SessionTokenType)
}

// ValidateUnlockToken validates an unlock token and returns the claims
func (s *TokenService) ValidateUnlockToken(tokenString string) (*Claims, error) {
	return s.validateToken(tokenString, UnlockTokenType)
}

// validateToken checks signature, expiry and token type
func (s *TokenService) validateToken(tokenString string, expectedType TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	if claims.Type != expectedType {
		return nil, errors.New("invalid token type")
	}

	return claims, nil
}

// RemainingTTL returns how long the token stays valid from now. Used to
// bound revocation entries to the token's own lifetime.
func (s *TokenService) RemainingTTL(claims *Claims) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	return time.Until(claims.ExpiresAt.Time)
}

// SessionTTL returns the configured session token lifetime
func (s *TokenService) SessionTTL() time.Duration {
	return s.sessionTTL
}
