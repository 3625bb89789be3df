package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/carelog-g8/carelog/internal/core/ports"
)

// MockTokenRevoker implements ports.TokenRevoker in memory.
type MockTokenRevoker struct {
	mu      sync.RWMutex
	revoked map[string]time.Duration

	RevokeError    error
	IsRevokedError error
}

var _ ports.TokenRevoker = (*MockTokenRevoker)(nil)

func NewMockTokenRevoker() *MockTokenRevoker {
	return &MockTokenRevoker{revoked: make(map[string]time.Duration)}
}

func (m *MockTokenRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.RevokeError != nil {
		return m.RevokeError
	}
	m.revoked[tokenID] = ttl
	return nil
}

func (m *MockTokenRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.IsRevokedError != nil {
		return false, m.IsRevokedError
	}
	_, ok := m.revoked[tokenID]
	return ok, nil
}

// TTL reports the ttl a token was revoked with.
func (m *MockTokenRevoker) TTL(tokenID string) (time.Duration, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ttl, ok := m.revoked[tokenID]
	return ttl, ok
}
