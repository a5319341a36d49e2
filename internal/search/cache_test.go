package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scoutdb/scoutdb/pkg/config"
)

func TestBuildKeyIsDeterministic(t *testing.T) {
	cache := NewCache(nil, config.CacheConfig{}, nil)
	opts := Options{Page: 2, PageSize: 10, Filters: map[string]any{"tenant_id": 1, "region": "eu"}}

	first := cache.buildKey("user", "hello world", opts)
	second := cache.buildKey("user", "hello world", opts)
	assert.Equal(t, first, second)

	// Filter map iteration order must not leak into the key.
	swapped := Options{Page: 2, PageSize: 10, Filters: map[string]any{"region": "eu", "tenant_id": 1}}
	assert.Equal(t, first, cache.buildKey("user", "hello world", swapped))
}

func TestBuildKeyIsCaseInsensitiveOnQuery(t *testing.T) {
	cache := NewCache(nil, config.CacheConfig{}, nil)
	assert.Equal(t,
		cache.buildKey("user", "Hello World", Options{}),
		cache.buildKey("user", "hello world", Options{}),
	)
}

func TestBuildKeyDivergesPerParameter(t *testing.T) {
	cache := NewCache(nil, config.CacheConfig{}, nil)
	base := cache.buildKey("user", "hello", Options{Page: 1, PageSize: 10})

	assert.NotEqual(t, base, cache.buildKey("post", "hello", Options{Page: 1, PageSize: 10}))
	assert.NotEqual(t, base, cache.buildKey("user", "goodbye", Options{Page: 1, PageSize: 10}))
	assert.NotEqual(t, base, cache.buildKey("user", "hello", Options{Page: 2, PageSize: 10}))
	assert.NotEqual(t, base, cache.buildKey("user", "hello", Options{Page: 1, PageSize: 25}))
	assert.NotEqual(t, base, cache.buildKey("user", "hello", Options{Page: 1, PageSize: 10, Limit: 5}))
	assert.NotEqual(t, base, cache.buildKey("user", "hello", Options{
		Page: 1, PageSize: 10, Filters: map[string]any{"tenant_id": 1},
	}))
}

func TestBuildKeyEmbedsDocumentTypeForInvalidation(t *testing.T) {
	cache := NewCache(nil, config.CacheConfig{}, nil)
	key := cache.buildKey("user", "hello", Options{})

	// Per-type invalidation matches on the "scout:search:<type>:" prefix.
	assert.True(t, strings.HasPrefix(key, "scout:search:user:"))
}
