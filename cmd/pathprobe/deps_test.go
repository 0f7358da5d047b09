package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathprobe/pathprobe/config"
	"github.com/pathprobe/pathprobe/pathway"
)

func TestBuildStructureSourceMemory(t *testing.T) {
	client := pathway.NewClient("test-key")

	source, cleanup, err := buildStructureSource(client, nil)
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, source)
}

func TestBuildStructureSourceBadTTL(t *testing.T) {
	client := pathway.NewClient("test-key")

	_, _, err := buildStructureSource(client, &config.CacheSpec{
		RedisAddr: "localhost:6379",
		TTL:       "not-a-duration",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cache ttl")
}

func TestBuildProviderDefaultsBaseURL(t *testing.T) {
	provider := buildProvider(config.ProviderSpec{Model: config.DefaultModel})
	assert.Equal(t, "openrouter", provider.ID())
}

func TestBuildRepositories(t *testing.T) {
	repo, err := buildRepositories(config.OutputSpec{
		Dir:            t.TempDir(),
		Formats:        []string{"json", "markdown", "junit", "html"},
		JUnitThreshold: 80,
	})
	require.NoError(t, err)
	assert.NotNil(t, repo)
}

func TestBuildRepositoriesUnknownFormat(t *testing.T) {
	_, err := buildRepositories(config.OutputSpec{
		Dir:     t.TempDir(),
		Formats: []string{"pdf"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}
