package mocks

import (
	"context"
	"sync"

	"github.com/carelog-g8/carelog/internal/core/ports"
)

// MockAlertPublisher implements ports.AlertPublisher for testing.
type MockAlertPublisher struct {
	mu sync.RWMutex

	// Track published events for verification
	PublishedEvents []ports.PainAlertEvent

	// Error injection for testing error scenarios
	PublishError error

	PublishCallCount int
}

var _ ports.AlertPublisher = (*MockAlertPublisher)(nil)

func NewMockAlertPublisher() *MockAlertPublisher {
	return &MockAlertPublisher{
		PublishedEvents: make([]ports.PainAlertEvent, 0),
	}
}

func (m *MockAlertPublisher) PublishPainAlert(ctx context.Context, evt ports.PainAlertEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PublishCallCount++

	if m.PublishError != nil {
		return m.PublishError
	}

	m.PublishedEvents = append(m.PublishedEvents, evt)
	return nil
}

func (m *MockAlertPublisher) GetPublishedEvents() []ports.PainAlertEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]ports.PainAlertEvent(nil), m.PublishedEvents...)
}

func (m *MockAlertPublisher) GetCallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PublishCallCount
}
