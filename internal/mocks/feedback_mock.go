package mocks

import (
	"context"
	"sync"

	"github.com/carelog-g8/carelog/internal/core/ports"
)

// MockFeedbackGenerator returns Text for every request unless GenerateError
// is set.
type MockFeedbackGenerator struct {
	mu sync.Mutex

	Text          string
	GenerateError error

	Calls []FeedbackCall
}

type FeedbackCall struct {
	Notes    string
	Mood     int
	Pain     int
	Appetite int
}

var _ ports.FeedbackGenerator = (*MockFeedbackGenerator)(nil)

func NewMockFeedbackGenerator(text string) *MockFeedbackGenerator {
	return &MockFeedbackGenerator{Text: text}
}

func (m *MockFeedbackGenerator) Generate(ctx context.Context, notes string, mood, pain, appetite int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, FeedbackCall{Notes: notes, Mood: mood, Pain: pain, Appetite: appetite})
	if m.GenerateError != nil {
		return "", m.GenerateError
	}
	return m.Text, nil
}

func (m *MockFeedbackGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
