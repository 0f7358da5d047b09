package pathway

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
	contentTypeHeader   = "Content-Type"
	applicationJSON     = "application/json"
	authorizationHeader = "authorization"

	defaultBaseURL     = "https://api.bland.ai/v1"
	defaultChatBaseURL = "https://us.api.bland.ai/v1"

	componentName = "pathway"
)

// Service is the narrow contract the conversation driver depends on.
// Wire-level detail is owned by the implementation.
type Service interface {
	// CreateChat opens a chat session for the pathway and returns its chat id.
	CreateChat(ctx context.Context, pathwayID string, requestData map[string]any) (string, error)

	// SendMessage sends one user message to the chat. An empty message is
	// valid for the very first turn, where the service produces the opening
	// assistant reply without user input.
	SendMessage(ctx context.Context, chatID, message string) (*TurnResponse, error)
}

// StructureSource resolves a pathway id to its graph structure.
// Implementations may legitimately return an empty structure when
// credentials or graph metadata are unavailable.
type StructureSource interface {
	FetchStructure(ctx context.Context, pathwayID string) (*Structure, error)
}

// Client talks to the remote pathway service over HTTP.
// It implements both Service and StructureSource.
type Client struct {
	apiKey      string
	baseURL     string
	chatBaseURL string
	httpClient  *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the structure API base URL.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithChatBaseURL overrides the chat API base URL.
func WithChatBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.chatBaseURL = url
	}
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a pathway service client. The API key falls back to the
// BLAND_API_KEY environment variable when empty.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	if apiKey == "" {
		apiKey = os.Getenv("BLAND_API_KEY")
	}

	c := &Client{
		apiKey:      apiKey,
		baseURL:     defaultBaseURL,
		chatBaseURL: defaultChatBaseURL,
		httpClient:  httputil.NewHTTPClient(httputil.DefaultServiceTimeout),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// envelope is the service's standard response wrapper.
type envelope struct {
	Errors any             `json:"errors"`
	Data   json.RawMessage `json:"data"`
}

// CreateChat opens a pathway chat session and returns its chat id.
func (c *Client) CreateChat(ctx context.Context, pathwayID string, requestData map[string]any) (string, error) {
	payload := map[string]any{"pathway_id": pathwayID}
	if len(requestData) > 0 {
		payload["request_data"] = requestData
	}

	logger.ServiceCall("CreateChat", pathwayID)

	data, err := c.post(ctx, c.chatBaseURL+"/pathway/chat/create", "CreateChat", payload)
	if err != nil {
		return "", err
	}

	var created struct {
		ChatID string `json:"chat_id"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		return "", errors.New(componentName, "CreateChat", fmt.Errorf("decode response: %w", err))
	}
	if created.ChatID == "" {
		return "", errors.New(componentName, "CreateChat", fmt.Errorf("service returned no chat_id"))
	}

	return created.ChatID, nil
}

// SendMessage sends one user message (empty for the opening turn) and returns
// the service's turn response.
func (c *Client) SendMessage(ctx context.Context, chatID, message string) (*TurnResponse, error) {
	payload := map[string]any{}
	if message != "" {
		payload["message"] = message
	}

	data, err := c.post(ctx, c.chatBaseURL+"/pathway/chat/"+chatID, "SendMessage", payload)
	if err != nil {
		return nil, err
	}

	var turn TurnResponse
	if err := json.Unmarshal(data, &turn); err != nil {
		return nil, errors.New(componentName, "SendMessage", fmt.Errorf("decode response: %w", err))
	}

	return &turn, nil
}

// FetchStructure retrieves the pathway graph structure. The structure endpoint
// returns the pathway document at the top level rather than inside a data
// envelope.
func (c *Client) FetchStructure(ctx context.Context, pathwayID string) (*Structure, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/pathway/"+pathwayID, nil)
	if err != nil {
		return nil, errors.New(componentName, "FetchStructure", err)
	}
	req.Header.Set(authorizationHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.New(componentName, "FetchStructure", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New(componentName, "FetchStructure", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New(componentName, "FetchStructure",
			fmt.Errorf("unexpected status from pathway service")).
			WithStatusCode(resp.StatusCode).
			WithDetails(map[string]any{"body": string(body)})
	}

	var probe struct {
		Errors any `json:"errors"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, errors.New(componentName, "FetchStructure", fmt.Errorf("decode response: %w", err))
	}
	if probe.Errors != nil {
		return nil, errors.New(componentName, "FetchStructure",
			fmt.Errorf("service reported errors")).
			WithDetails(map[string]any{"errors": probe.Errors})
	}

	var structure Structure
	if err := json.Unmarshal(body, &structure); err != nil {
		return nil, errors.New(componentName, "FetchStructure", fmt.Errorf("decode structure: %w", err))
	}

	return &structure, nil
}

// post sends a JSON payload and unwraps the service's response envelope.
func (c *Client) post(ctx context.Context, url, operation string, payload map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.New(componentName, operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.New(componentName, operation, err)
	}
	req.Header.Set(authorizationHeader, c.apiKey)
	req.Header.Set(contentTypeHeader, applicationJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.New(componentName, operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New(componentName, operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New(componentName, operation,
			fmt.Errorf("unexpected status from pathway service")).
			WithStatusCode(resp.StatusCode).
			WithDetails(map[string]any{"body": string(respBody)})
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, errors.New(componentName, operation, fmt.Errorf("decode envelope: %w", err))
	}
	if env.Errors != nil {
		return nil, errors.New(componentName, operation,
			fmt.Errorf("service reported errors")).
			WithDetails(map[string]any{"errors": env.Errors})
	}

	return env.Data, nil
}
