package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/pathprobe/pathprobe/logger"
	"github.com/pathprobe/pathprobe/pkg/errors"
	"github.com/pathprobe/pathprobe/pkg/httputil"
)

// HTTP constants
const (
	chatCompletionsPath = "/chat/completions"
	contentTypeHeader   = "Content-Type"
	applicationJSON     = "application/json"
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
)

// OpenAIProvider implements Provider against any OpenAI-compatible
// chat-completions endpoint (OpenAI, OpenRouter, vLLM, ...).
type OpenAIProvider struct {
	id         string
	model      string
	baseURL    string
	apiKey     string
	defaults   Defaults
	httpClient *http.Client
}

// OpenAIOption configures an OpenAIProvider.
type OpenAIOption func(*OpenAIProvider)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.httpClient = hc
	}
}

// WithAPIKey sets the API key explicitly instead of reading it from the
// environment.
func WithAPIKey(key string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.apiKey = key
	}
}

// NewOpenAIProvider creates a provider for an OpenAI-compatible endpoint.
// The API key falls back to OPENROUTER_API_KEY, then OPENAI_API_KEY.
func NewOpenAIProvider(id, model, baseURL string, defaults Defaults, opts ...OpenAIOption) *OpenAIProvider {
	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	p := &OpenAIProvider{
		id:         id,
		model:      model,
		baseURL:    baseURL,
		apiKey:     apiKey,
		defaults:   defaults,
		httpClient: httputil.NewHTTPClient(httputil.DefaultProviderTimeout),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ID returns the provider's configured identifier.
func (p *OpenAIProvider) ID() string {
	return p.id
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    float32               `json:"temperature"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// applyRequestDefaults applies provider defaults to zero-valued request parameters.
func (p *OpenAIProvider) applyRequestDefaults(req PredictionRequest) (temperature float32, maxTokens int) {
	temperature = req.Temperature
	if temperature == 0 {
		temperature = p.defaults.Temperature
	}

	maxTokens = req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.defaults.MaxTokens
	}

	return temperature, maxTokens
}

// Predict sends a chat-completion request and returns the first choice.
func (p *OpenAIProvider) Predict(ctx context.Context, req PredictionRequest) (PredictionResponse, error) {
	messages := make([]openAIMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, openAIMessage{Role: m.Role, Content: m.Content})
	}

	temperature, maxTokens := p.applyRequestDefaults(req)

	apiReq := openAIRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	if req.JSONMode {
		apiReq.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return PredictionResponse{}, errors.New("providers", "Predict", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+chatCompletionsPath, bytes.NewReader(body))
	if err != nil {
		return PredictionResponse{}, errors.New("providers", "Predict", err)
	}
	httpReq.Header.Set(contentTypeHeader, applicationJSON)
	httpReq.Header.Set(authorizationHeader, bearerPrefix+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		logger.LLMError(p.id, "completion", err)
		return PredictionResponse{}, errors.New("providers", "Predict", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return PredictionResponse{}, errors.New("providers", "Predict", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return PredictionResponse{}, errors.New("providers", "Predict",
			fmt.Errorf("unexpected status from completion endpoint")).
			WithStatusCode(resp.StatusCode).
			WithDetails(map[string]any{"body": string(respBody)})
	}

	var apiResp openAIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return PredictionResponse{}, errors.New("providers", "Predict", fmt.Errorf("decode response: %w", err))
	}
	if apiResp.Error != nil {
		return PredictionResponse{}, errors.New("providers", "Predict",
			fmt.Errorf("%s: %s", apiResp.Error.Type, apiResp.Error.Message))
	}
	if len(apiResp.Choices) == 0 {
		return PredictionResponse{}, errors.New("providers", "Predict", fmt.Errorf("response contained no choices"))
	}

	logger.LLMResponse(p.id, "completion", apiResp.Usage.PromptTokens, apiResp.Usage.CompletionTokens)

	return PredictionResponse{
		Content:      apiResp.Choices[0].Message.Content,
		InputTokens:  apiResp.Usage.PromptTokens,
		OutputTokens: apiResp.Usage.CompletionTokens,
	}, nil
}
