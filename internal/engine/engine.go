// Package engine is the facade the host application talks to: it combines
// the indexer, the seeker, and the optional query cache behind update,
// delete, flush, and search operations.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/scoutdb/scoutdb/internal/document"
	"github.com/scoutdb/scoutdb/internal/index"
	"github.com/scoutdb/scoutdb/internal/search"
	"github.com/scoutdb/scoutdb/internal/stemmer"
	"github.com/scoutdb/scoutdb/pkg/config"
	"github.com/scoutdb/scoutdb/pkg/database"
	"github.com/scoutdb/scoutdb/pkg/logger"
	"github.com/scoutdb/scoutdb/pkg/metrics"
	pkgredis "github.com/scoutdb/scoutdb/pkg/redis"
)

// SearchResult is what a result consumer receives: ranked document
// identifiers and the total hit count for the originating query.
type SearchResult struct {
	Identifiers []int64
	TotalHits   int
}

// Engine wires the indexing and query sides of the search index together.
type Engine struct {
	client  *database.Client
	redis   *pkgredis.Client
	indexer *index.Indexer
	seeker  *search.Seeker
	cache   *search.QueryCache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Open builds a fully wired engine from configuration: store client,
// stemmer, indexer, seeker, and (if enabled and reachable) the redis query
// cache. An unreachable redis disables caching instead of failing the
// engine.
func Open(cfg *config.Config, m *metrics.Metrics) (*Engine, error) {
	if m == nil {
		m = metrics.Nop()
	}

	client, err := database.New(cfg.Database)
	if err != nil {
		return nil, err
	}

	stem, err := stemmer.ForLanguage(cfg.Stemmer.Language)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	e := &Engine{
		client:  client,
		indexer: index.New(client, stem, cfg.Index, m),
		seeker:  search.New(client, stem, cfg.Search, cfg.Index.TablePrefix, m),
		metrics: m,
		logger:  logger.WithComponent("engine"),
	}

	if cfg.Cache.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Cache)
		if err != nil {
			e.logger.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			e.redis = redisClient
			e.cache = search.NewCache(redisClient, cfg.Cache, m)
			e.logger.Info("search cache enabled", "addr", cfg.Cache.Addr, "ttl", cfg.Cache.TTL)
		}
	}

	return e, nil
}

// Client exposes the underlying store client, e.g. for schema management.
func (e *Engine) Client() *database.Client {
	return e.client
}

// Close releases the store and cache connections.
func (e *Engine) Close() error {
	if e.redis != nil {
		_ = e.redis.Close()
	}
	return e.client.Close()
}

// Update indexes the given documents, replacing any rows they already had.
func (e *Engine) Update(ctx context.Context, docs ...document.Document) error {
	if err := e.indexer.Index(ctx, docs...); err != nil {
		return err
	}
	e.invalidateTypes(ctx, typesOfDocs(docs))
	return nil
}

// Delete removes the given documents from the index.
func (e *Engine) Delete(ctx context.Context, refs ...document.Ref) error {
	if err := e.indexer.DeleteFromIndex(ctx, refs...); err != nil {
		return err
	}
	e.invalidateTypes(ctx, typesOfRefs(refs))
	return nil
}

// Flush removes every indexed row of a document type.
func (e *Engine) Flush(ctx context.Context, documentType string) error {
	if err := e.indexer.DeleteIndex(ctx, documentType); err != nil {
		return err
	}
	e.invalidateTypes(ctx, []string{documentType})
	return nil
}

// Search runs a ranked query for one document type, consulting the cache
// when one is configured.
func (e *Engine) Search(ctx context.Context, documentType string, query string, opts search.Options) (*SearchResult, error) {
	start := time.Now()
	cacheStatus := "disabled"

	var result *search.Result
	var err error
	if e.cache != nil {
		var cached bool
		result, cached, err = e.cache.GetOrCompute(ctx, documentType, query, opts, func() (*search.Result, error) {
			return e.seeker.Search(ctx, documentType, query, opts)
		})
		cacheStatus = "miss"
		if cached {
			cacheStatus = "hit"
		}
	} else {
		result, err = e.seeker.Search(ctx, documentType, query, opts)
	}
	if err != nil {
		return nil, err
	}

	e.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
	return &SearchResult{Identifiers: result.Identifiers, TotalHits: result.TotalHits}, nil
}

// Paginate is a convenience wrapper for paged searches.
func (e *Engine) Paginate(ctx context.Context, documentType string, query string, filters map[string]any, page int, perPage int) (*SearchResult, error) {
	return e.Search(ctx, documentType, query, search.Options{
		Filters:  filters,
		Page:     page,
		PageSize: perPage,
	})
}

// invalidateTypes drops cached search results for the given document types
// after a successful write. Invalidation failures are logged, not surfaced:
// entries expire via TTL anyway.
func (e *Engine) invalidateTypes(ctx context.Context, documentTypes []string) {
	if e.cache == nil {
		return
	}
	for _, documentType := range documentTypes {
		if err := e.cache.InvalidateType(ctx, documentType); err != nil {
			e.logger.Warn("cache invalidation failed", "document_type", documentType, "error", err)
		}
	}
}

func typesOfDocs(docs []document.Document) []string {
	seen := make(map[string]struct{}, 1)
	var types []string
	for _, doc := range docs {
		if _, ok := seen[doc.SearchableType()]; !ok {
			seen[doc.SearchableType()] = struct{}{}
			types = append(types, doc.SearchableType())
		}
	}
	return types
}

func typesOfRefs(refs []document.Ref) []string {
	seen := make(map[string]struct{}, 1)
	var types []string
	for _, ref := range refs {
		if _, ok := seen[ref.Type]; !ok {
			seen[ref.Type] = struct{}{}
			types = append(types, ref.Type)
		}
	}
	return types
}
