package search

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/scoutdb/scoutdb/pkg/config"
	"github.com/scoutdb/scoutdb/pkg/logger"
	"github.com/scoutdb/scoutdb/pkg/metrics"
	pkgredis "github.com/scoutdb/scoutdb/pkg/redis"
)

const cacheKeyPrefix = "scout:search:"

// QueryCache memoizes search results in redis, keyed per document type so
// index writes can invalidate exactly the types they touched. Concurrent
// identical lookups collapse into one store query via singleflight.
type QueryCache struct {
	client  *pkgredis.Client
	cfg     config.CacheConfig
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewCache creates a QueryCache on top of an established redis connection.
func NewCache(client *pkgredis.Client, cfg config.CacheConfig, m *metrics.Metrics) *QueryCache {
	if m == nil {
		m = metrics.Nop()
	}
	return &QueryCache{
		client:  client,
		cfg:     cfg,
		metrics: m,
		logger:  logger.WithComponent("query-cache"),
	}
}

// Get returns the cached result for the given search parameters, if any.
func (c *QueryCache) Get(ctx context.Context, documentType string, query string, opts Options) (*Result, bool) {
	key := c.buildKey(documentType, query, opts)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	var result Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	c.metrics.CacheHitsTotal.Inc()
	return &result, true
}

// Set stores a result with the configured TTL. Failures are logged and
// swallowed; the cache never turns a successful search into an error.
func (c *QueryCache) Set(ctx context.Context, documentType string, query string, opts Options, result *Result) {
	key := c.buildKey(documentType, query, opts)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.TTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or computes, caches, and returns a
// fresh one. The boolean reports whether the cache served the result.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	documentType string,
	query string,
	opts Options,
	computeFn func() (*Result, error),
) (*Result, bool, error) {
	if result, ok := c.Get(ctx, documentType, query, opts); ok {
		return result, true, nil
	}
	key := c.buildKey(documentType, query, opts)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if result, ok := c.Get(ctx, documentType, query, opts); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, documentType, query, opts, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Result), false, nil
}

// InvalidateType drops every cached result of one document type. Called
// after successful index writes so readers never see stale pages longer
// than one write cycle.
func (c *QueryCache) InvalidateType(ctx context.Context, documentType string) error {
	pattern := cacheKeyPrefix + documentType + ":*"
	deleted, err := c.client.FlushByPattern(ctx, pattern)
	if err != nil {
		return fmt.Errorf("invalidating cache for type %s: %w", documentType, err)
	}
	c.logger.Debug("cache invalidated", "document_type", documentType, "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) buildKey(documentType string, query string, opts Options) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(query))
	fmt.Fprintf(&b, "|page=%d|size=%d|limit=%d", opts.Page, opts.PageSize, opts.Limit)
	columns := make([]string, 0, len(opts.Filters))
	for column := range opts.Filters {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	for _, column := range columns {
		fmt.Fprintf(&b, "|%s=%v", column, opts.Filters[column])
	}
	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%s%s:%x", cacheKeyPrefix, documentType, hash[:16])
}
