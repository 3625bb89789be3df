package mocks

import (
	"context"
	"sync"

	"github.com/carelog-g8/carelog/internal/core/domain"
	"github.com/carelog-g8/carelog/internal/core/ports"
)

// MockDocumentStore keeps a deep copy of the last saved document so tests can
// inspect exactly what was persisted.
type MockDocumentStore struct {
	mu sync.RWMutex

	Stored *domain.Document

	// Error injection
	LoadError error
	SaveError error

	LoadCallCount int
	SaveCallCount int
}

var _ ports.DocumentStore = (*MockDocumentStore)(nil)

func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{}
}

func (m *MockDocumentStore) Load(ctx context.Context) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LoadCallCount++
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	if m.Stored == nil {
		return domain.NewDocument(), nil
	}
	return m.Stored.Clone(), nil
}

func (m *MockDocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveCallCount++
	if m.SaveError != nil {
		return m.SaveError
	}
	m.Stored = doc.Clone()
	return nil
}

func (m *MockDocumentStore) GetSaveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.SaveCallCount
}

// Snapshot returns a copy of the last saved document, or nil.
func (m *MockDocumentStore) Snapshot() *domain.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Stored == nil {
		return nil
	}
	return m.Stored.Clone()
}
