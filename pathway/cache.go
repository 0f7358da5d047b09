package pathway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pathprobe/pathprobe/logger"
)

// StructureCache is a read-through cache in front of a StructureSource.
// Pathway structures are assumed stable for the lifetime of a test session,
// so entries are never invalidated within a run. The cache is owned by the
// caller (typically one per evaluator session) rather than being process
// global, so unrelated sessions never share state.
//
// Implementations must be safe for concurrent readers.
type StructureCache interface {
	StructureSource
}

// MemoryStructureCache caches structures in memory, keyed by pathway id.
type MemoryStructureCache struct {
	source  StructureSource
	mu      sync.RWMutex
	entries map[string]*Structure
}

// NewMemoryStructureCache creates an empty in-memory read-through cache.
func NewMemoryStructureCache(source StructureSource) *MemoryStructureCache {
	return &MemoryStructureCache{
		source:  source,
		entries: make(map[string]*Structure),
	}
}

// FetchStructure returns the cached structure for the pathway, fetching it
// from the underlying source on first access.
func (c *MemoryStructureCache) FetchStructure(ctx context.Context, pathwayID string) (*Structure, error) {
	c.mu.RLock()
	cached, ok := c.entries[pathwayID]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	structure, err := c.source.FetchStructure(ctx, pathwayID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[pathwayID] = structure
	c.mu.Unlock()

	return structure, nil
}

// Len returns the number of cached structures.
func (c *MemoryStructureCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RedisStructureCache caches structures in Redis, allowing parallel test
// workers (or repeated sessions against a stable pathway) to share fetched
// graph metadata. It uses JSON serialization and TTL-based expiry.
type RedisStructureCache struct {
	source StructureSource
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// RedisCacheOption configures a RedisStructureCache.
type RedisCacheOption func(*RedisStructureCache)

// WithTTL sets the time-to-live for cached structures.
// Default is 1 hour. Set to 0 for no expiration.
func WithTTL(ttl time.Duration) RedisCacheOption {
	return func(c *RedisStructureCache) {
		c.ttl = ttl
	}
}

// WithPrefix sets the key prefix for Redis keys. Default is "pathprobe".
func WithPrefix(prefix string) RedisCacheOption {
	return func(c *RedisStructureCache) {
		c.prefix = prefix
	}
}

// NewRedisStructureCache creates a Redis-backed read-through cache.
//
// Example:
//
//	cache := NewRedisStructureCache(client, source, WithTTL(time.Hour))
func NewRedisStructureCache(client *redis.Client, source StructureSource, opts ...RedisCacheOption) *RedisStructureCache {
	c := &RedisStructureCache{
		source: source,
		client: client,
		ttl:    time.Hour,
		prefix: "pathprobe",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *RedisStructureCache) key(pathwayID string) string {
	return fmt.Sprintf("%s:structure:%s", c.prefix, pathwayID)
}

// FetchStructure returns the cached structure, fetching and storing it on a
// miss. Redis failures degrade to a direct source fetch rather than failing
// the lookup.
func (c *RedisStructureCache) FetchStructure(ctx context.Context, pathwayID string) (*Structure, error) {
	key := c.key(pathwayID)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var structure Structure
		if unmarshalErr := json.Unmarshal(data, &structure); unmarshalErr == nil {
			return &structure, nil
		}
		logger.Warn("Discarding unreadable cached pathway structure", "pathway_id", pathwayID)
	} else if !errors.Is(err, redis.Nil) {
		logger.Warn("Redis structure cache unavailable, fetching directly", "error", err)
	}

	structure, err := c.source.FetchStructure(ctx, pathwayID)
	if err != nil {
		return nil, err
	}

	if data, marshalErr := json.Marshal(structure); marshalErr == nil {
		if setErr := c.client.Set(ctx, key, data, c.ttl).Err(); setErr != nil {
			logger.Warn("Failed to cache pathway structure", "pathway_id", pathwayID, "error", setErr)
		}
	}

	return structure, nil
}
