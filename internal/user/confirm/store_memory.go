package confirm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// Clock abstracts time.Now for expiry tests.
type Clock func() time.Time

// MemoryTokens is the in-memory token store for tests and single-instance
// runs.
type MemoryTokens struct {
	mu     sync.Mutex
	tokens map[string]memoryToken
	clock  Clock
}

type memoryToken struct {
	accountID domain.UserID
	expiresAt time.Time
}

// MemoryTokensOption configures a MemoryTokens instance.
type MemoryTokensOption func(*MemoryTokens)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) MemoryTokensOption {
	return func(s *MemoryTokens) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewMemoryTokens constructs an in-memory token store.
func NewMemoryTokens(opts ...MemoryTokensOption) *MemoryTokens {
	s := &MemoryTokens{
		tokens: make(map[string]memoryToken),
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Issue stores a fresh token mapped to the account for the given TTL.
func (s *MemoryTokens) Issue(_ context.Context, accountID domain.UserID, ttl time.Duration) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = memoryToken{
		accountID: accountID,
		expiresAt: s.clock().Add(ttl),
	}
	return token, nil
}

// Redeem consumes the token and returns the account it was issued for.
func (s *MemoryTokens) Redeem(_ context.Context, token string) (domain.UserID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tokens[token]
	if !ok {
		return domain.UserID{}, fmt.Errorf("confirmation token: %w", sentinel.ErrNotFound)
	}
	delete(s.tokens, token)
	if s.clock().After(entry.expiresAt) {
		return domain.UserID{}, fmt.Errorf("confirmation token expired: %w", sentinel.ErrNotFound)
	}
	return entry.accountID, nil
}
