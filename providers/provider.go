// Package providers defines the LLM completion provider abstraction used for
// persona response generation and persona factory prompts.
package providers

import "context"

// Message is a single role-tagged chat message sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PredictionRequest describes one completion call.
type PredictionRequest struct {
	// System is the system prompt, prepended when non-empty.
	System string

	// Messages is the role-tagged conversation history.
	Messages []Message

	// Temperature overrides the provider default when non-zero.
	Temperature float32

	// MaxTokens overrides the provider default when non-zero.
	MaxTokens int

	// JSONMode requests a JSON object response where the provider supports it.
	JSONMode bool
}

// PredictionResponse is the provider's completion result.
type PredictionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
}

// Provider is a completion backend. Implementations must be safe for
// concurrent use.
type Provider interface {
	// ID returns the provider's configured identifier.
	ID() string

	// Predict sends a completion request and returns the response.
	Predict(ctx context.Context, req PredictionRequest) (PredictionResponse, error)
}

// Defaults holds provider-level default parameters applied to zero-valued
// request fields.
type Defaults struct {
	Temperature float32
	MaxTokens   int
}
