package providers

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider is a provider implementation for testing and development.
// It returns scripted responses without making any API calls. Responses are
// consumed in order; once exhausted, the last response repeats.
type MockProvider struct {
	id        string
	mu        sync.Mutex
	responses []string
	next      int

	// Requests records every request received, for assertions in tests.
	Requests []PredictionRequest

	// Err, when set, is returned by every Predict call.
	Err error
}

// NewMockProvider creates a mock provider with the given scripted responses.
func NewMockProvider(id string, responses ...string) *MockProvider {
	if len(responses) == 0 {
		responses = []string{fmt.Sprintf("Mock response from %s", id)}
	}
	return &MockProvider{
		id:        id,
		responses: responses,
	}
}

// ID returns the provider ID.
func (m *MockProvider) ID() string {
	return m.id
}

// Predict returns the next scripted response.
func (m *MockProvider) Predict(ctx context.Context, req PredictionRequest) (PredictionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)

	if m.Err != nil {
		return PredictionResponse{}, m.Err
	}

	content := m.responses[m.next]
	if m.next < len(m.responses)-1 {
		m.next++
	}

	return PredictionResponse{
		Content:      content,
		InputTokens:  len(req.Messages) * 8,
		OutputTokens: len(content) / 4,
	}, nil
}
