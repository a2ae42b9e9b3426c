package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore is the process-wide set of revoked tokens. Membership is
// checked by exact token, so revoking one session never touches other
// sessions of the same account. Entries carry the token's own remaining
// lifetime as TTL so the set cannot grow unbounded.
type RevocationStore interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// hashToken derives the storage key for a token. Raw bearer tokens are never
// kept in the store, mirroring how refresh tokens are persisted hashed.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// MemoryRevocationStore keeps revoked tokens in a mutex-guarded map with a
// janitor goroutine that drops expired entries.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	stopCh  chan struct{}
}

// NewMemoryRevocationStore creates an in-memory revocation store and starts
// its cleanup loop.
func NewMemoryRevocationStore(cleanupInterval time.Duration) *MemoryRevocationStore {
	s := &MemoryRevocationStore{
		revoked: make(map[string]time.Time),
		stopCh:  make(chan struct{}),
	}

	go s.cleanup(cleanupInterval)

	return s
}

// Revoke adds a token to the set. Idempotent: revoking twice extends nothing
// beyond the token's own expiry.
func (s *MemoryRevocationStore) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		// Already expired; verification rejects it regardless.
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[hashToken(token)] = time.Now().Add(ttl)

	return nil
}

// IsRevoked reports whether a token is present in the set
func (s *MemoryRevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiry, ok := s.revoked[hashToken(token)]
	if !ok {
		return false, nil
	}

	// An expired entry means the token itself is expired too; report it as
	// not revoked and let the janitor collect the entry.
	return time.Now().Before(expiry), nil
}

// Len returns the current number of entries, expired ones included
func (s *MemoryRevocationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.revoked)
}

// Close stops the cleanup loop
func (s *MemoryRevocationStore) Close() {
	close(s.stopCh)
}

func (s *MemoryRevocationStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for key, expiry := range s.revoked {
				if now.After(expiry) {
					delete(s.revoked, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

// RedisRevocationStore shares the revocation set across processes. Redis TTL
// handles expiry, so there is no cleanup loop.
type RedisRevocationStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisRevocationStore creates a Redis-backed revocation store
func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{
		client:    client,
		keyPrefix: "auth:revoked:",
	}
}

// Revoke adds a token to the set with the token's remaining lifetime as TTL
func (s *RedisRevocationStore) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, s.keyPrefix+hashToken(token), "1", ttl).Err()
}

// IsRevoked reports whether a token is present in the set
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, s.keyPrefix+hashToken(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
