package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextualError_Error(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := New("pathway", "CreateChat", cause)

	assert.Equal(t, "[pathway] CreateChat: connection refused", err.Error())
}

func TestContextualError_WithStatusCode(t *testing.T) {
	err := New("pathway", "SendMessage", stderrors.New("bad gateway")).WithStatusCode(502)

	assert.Equal(t, "[pathway] SendMessage (status 502): bad gateway", err.Error())
	assert.Equal(t, 502, err.StatusCode)
}

func TestContextualError_NoCause(t *testing.T) {
	err := New("engine", "Run", nil)
	assert.Equal(t, "[engine] Run", err.Error())
}

func TestContextualError_Unwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := New("providers", "Predict", cause)

	assert.True(t, stderrors.Is(err, cause))

	var ce *ContextualError
	assert.True(t, stderrors.As(err, &ce))
	assert.Equal(t, "providers", ce.Component)
}

func TestContextualError_WithDetails(t *testing.T) {
	err := New("pathway", "SendMessage", stderrors.New("errors in payload")).
		WithDetails(map[string]any{"errors": []string{"invalid chat id"}})

	assert.NotNil(t, err.Details)
	assert.Contains(t, err.Details, "errors")
}
