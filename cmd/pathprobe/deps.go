package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pathprobe/pathprobe/config"
	"github.com/pathprobe/pathprobe/pathway"
	"github.com/pathprobe/pathprobe/providers"
	"github.com/pathprobe/pathprobe/results"
	htmlrepo "github.com/pathprobe/pathprobe/results/html"
	jsonrepo "github.com/pathprobe/pathprobe/results/json"
	junitrepo "github.com/pathprobe/pathprobe/results/junit"
	mdrepo "github.com/pathprobe/pathprobe/results/markdown"
)

// buildStructureSource wires the pathway client behind a structure cache.
// Without a cache spec an in-process cache is used; with one, structures are
// shared through Redis. The returned cleanup closes the Redis connection.
func buildStructureSource(client *pathway.Client, spec *config.CacheSpec) (pathway.StructureSource, func(), error) {
	if spec == nil {
		return pathway.NewMemoryStructureCache(client), func() {}, nil
	}

	var opts []pathway.RedisCacheOption
	if spec.Prefix != "" {
		opts = append(opts, pathway.WithPrefix(spec.Prefix))
	}
	if spec.TTL != "" {
		ttl, err := time.ParseDuration(spec.TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid cache ttl %q: %w", spec.TTL, err)
		}
		opts = append(opts, pathway.WithTTL(ttl))
	}

	rdb := redis.NewClient(&redis.Options{Addr: spec.RedisAddr})
	cache := pathway.NewRedisStructureCache(rdb, client, opts...)
	cleanup := func() { _ = rdb.Close() }
	return cache, cleanup, nil
}

// buildProvider creates the persona LLM provider from the manifest spec.
func buildProvider(spec config.ProviderSpec) providers.Provider {
	baseURL := spec.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultProviderBaseURL
	}
	return providers.NewOpenAIProvider("openrouter", spec.Model, baseURL, providers.Defaults{
		Temperature: spec.Temperature,
		MaxTokens:   spec.MaxTokens,
	})
}

// buildRepositories assembles the output repositories named by the manifest.
func buildRepositories(spec config.OutputSpec) (results.Repository, error) {
	var repos []results.Repository
	for _, format := range spec.Formats {
		switch format {
		case "json":
			repos = append(repos, jsonrepo.NewRepository(spec.Dir))
		case "markdown":
			repos = append(repos, mdrepo.NewRepository(filepath.Join(spec.Dir, "report.md")))
		case "junit":
			repos = append(repos, junitrepo.NewRepository(
				filepath.Join(spec.Dir, "junit.xml"),
				junitrepo.WithFailureThreshold(spec.JUnitThreshold)))
		case "html":
			repos = append(repos, htmlrepo.NewRepository(filepath.Join(spec.Dir, "report.html")))
		default:
			return nil, fmt.Errorf("unknown output format %q", format)
		}
	}
	return results.NewComposite(repos...), nil
}
