package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathprobe/pathprobe/pkg/errors"
)

func completionServer(t *testing.T, captured *openAIRequest, status int, respBody string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}

		w.WriteHeader(status)
		w.Write([]byte(respBody))
	}))
}

func TestOpenAIPredict(t *testing.T) {
	var captured openAIRequest
	server := completionServer(t, &captured, http.StatusOK, `{
		"choices": [{"message": {"role": "assistant", "content": "Hello there"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 12, "completion_tokens": 4}
	}`)
	defer server.Close()

	p := NewOpenAIProvider("test", "gpt-test", server.URL,
		Defaults{Temperature: 0.7, MaxTokens: 256},
		WithAPIKey("test-key"))

	resp, err := p.Predict(context.Background(), PredictionRequest{
		System: "You are a caller.",
		Messages: []Message{
			{Role: "user", Content: "hi"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello there", resp.Content)
	assert.Equal(t, 12, resp.InputTokens)
	assert.Equal(t, 4, resp.OutputTokens)

	// System prompt is prepended as the first message.
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "You are a caller.", captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)

	assert.Equal(t, "gpt-test", captured.Model)
	assert.InDelta(t, 0.7, captured.Temperature, 0.001)
	assert.Equal(t, 256, captured.MaxTokens)
	assert.Nil(t, captured.ResponseFormat)
}

func TestOpenAIPredict_RequestOverridesDefaults(t *testing.T) {
	var captured openAIRequest
	server := completionServer(t, &captured, http.StatusOK, `{
		"choices": [{"message": {"content": "ok"}}],
		"usage": {"prompt_tokens": 1, "completion_tokens": 1}
	}`)
	defer server.Close()

	p := NewOpenAIProvider("test", "gpt-test", server.URL,
		Defaults{Temperature: 0.7, MaxTokens: 256},
		WithAPIKey("test-key"))

	_, err := p.Predict(context.Background(), PredictionRequest{
		Messages:    []Message{{Role: "user", Content: "hi"}},
		Temperature: 1.2,
		MaxTokens:   50,
	})
	require.NoError(t, err)

	assert.InDelta(t, 1.2, captured.Temperature, 0.001)
	assert.Equal(t, 50, captured.MaxTokens)
}

func TestOpenAIPredict_JSONMode(t *testing.T) {
	var captured openAIRequest
	server := completionServer(t, &captured, http.StatusOK, `{
		"choices": [{"message": {"content": "{\"a\":1}"}}],
		"usage": {}
	}`)
	defer server.Close()

	p := NewOpenAIProvider("test", "gpt-test", server.URL, Defaults{}, WithAPIKey("test-key"))

	resp, err := p.Predict(context.Background(), PredictionRequest{
		Messages: []Message{{Role: "user", Content: "give me json"}},
		JSONMode: true,
	})
	require.NoError(t, err)

	require.NotNil(t, captured.ResponseFormat)
	assert.Equal(t, "json_object", captured.ResponseFormat.Type)
	assert.JSONEq(t, `{"a":1}`, resp.Content)
}

func TestOpenAIPredict_HTTPError(t *testing.T) {
	server := completionServer(t, nil, http.StatusTooManyRequests, `rate limited`)
	defer server.Close()

	p := NewOpenAIProvider("test", "gpt-test", server.URL, Defaults{}, WithAPIKey("test-key"))

	_, err := p.Predict(context.Background(), PredictionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)

	var ctxErr *errors.ContextualError
	require.ErrorAs(t, err, &ctxErr)
	assert.Equal(t, http.StatusTooManyRequests, ctxErr.StatusCode)
}

func TestOpenAIPredict_APIErrorObject(t *testing.T) {
	server := completionServer(t, nil, http.StatusOK, `{
		"error": {"message": "model not found", "type": "invalid_request_error"}
	}`)
	defer server.Close()

	p := NewOpenAIProvider("test", "gpt-test", server.URL, Defaults{}, WithAPIKey("test-key"))

	_, err := p.Predict(context.Background(), PredictionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

func TestOpenAIPredict_NoChoices(t *testing.T) {
	server := completionServer(t, nil, http.StatusOK, `{"choices": [], "usage": {}}`)
	defer server.Close()

	p := NewOpenAIProvider("test", "gpt-test", server.URL, Defaults{}, WithAPIKey("test-key"))

	_, err := p.Predict(context.Background(), PredictionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestMockProvider(t *testing.T) {
	m := NewMockProvider("mock", "first", "second")

	resp, err := m.Predict(context.Background(), PredictionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Content)

	resp, err = m.Predict(context.Background(), PredictionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "second", resp.Content)

	// Exhausted scripts repeat the last response.
	resp, err = m.Predict(context.Background(), PredictionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "second", resp.Content)

	assert.Len(t, m.Requests, 3)
	assert.Equal(t, "mock", m.ID())
}
