// Package benchmark contains Go benchmarks for the indexer and the search
// pipeline, measuring throughput and allocation behaviour against an
// in-memory store.
package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/scoutdb/scoutdb/internal/document"
	"github.com/scoutdb/scoutdb/internal/engine"
	"github.com/scoutdb/scoutdb/internal/index"
	"github.com/scoutdb/scoutdb/internal/search"
	"github.com/scoutdb/scoutdb/pkg/config"
)

func newBenchEngine(b *testing.B) *engine.Engine {
	b.Helper()
	cfg := config.Default()
	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = ""

	eng, err := engine.Open(cfg, nil)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = eng.Close() })
	if err := index.EnsureSchema(context.Background(), eng.Client(), cfg.Index.TablePrefix); err != nil {
		b.Fatal(err)
	}
	return eng
}

var benchTerms = []string{"database", "search", "ranking", "posting", "indexing", "query", "engine", "stemming"}

func benchDoc(id int64) document.MapDocument {
	title := fmt.Sprintf("document about %s and %s", benchTerms[id%int64(len(benchTerms))], benchTerms[(id+1)%int64(len(benchTerms))])
	body := fmt.Sprintf("this document covers %s %s %s in production systems",
		benchTerms[id%int64(len(benchTerms))],
		benchTerms[(id+2)%int64(len(benchTerms))],
		benchTerms[(id+3)%int64(len(benchTerms))])
	return document.MapDocument{
		Type: "article",
		ID:   id,
		Fields: map[string]document.FieldValue{
			"title": document.FreeText(title),
			"body":  document.FreeText(body),
		},
	}
}

// BenchmarkEngineUpdate measures single-document indexing throughput at
// various pre-loaded corpus sizes.
func BenchmarkEngineUpdate(b *testing.B) {
	sizes := []int{100, 1000, 5000}
	for _, preload := range sizes {
		b.Run(fmt.Sprintf("preload_%d", preload), func(b *testing.B) {
			eng := newBenchEngine(b)
			ctx := context.Background()
			for i := 0; i < preload; i++ {
				if err := eng.Update(ctx, benchDoc(int64(i))); err != nil {
					b.Fatal(err)
				}
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := eng.Update(ctx, benchDoc(int64(preload+i))); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkEngineUpdateBatch measures batched indexing throughput, the path
// a full re-import takes.
func BenchmarkEngineUpdateBatch(b *testing.B) {
	batchSizes := []int{10, 100}
	for _, size := range batchSizes {
		b.Run(fmt.Sprintf("batch_%d", size), func(b *testing.B) {
			eng := newBenchEngine(b)
			ctx := context.Background()
			docs := make([]document.Document, size)
			for i := range docs {
				docs[i] = benchDoc(int64(i))
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := eng.Update(ctx, docs...); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkEngineSearch measures end-to-end ranked search latency across a
// 10 000 document corpus.
func BenchmarkEngineSearch(b *testing.B) {
	eng := newBenchEngine(b)
	ctx := context.Background()

	const corpus = 10000
	const batch = 500
	docs := make([]document.Document, 0, batch)
	for i := 0; i < corpus; i++ {
		docs = append(docs, benchDoc(int64(i)))
		if len(docs) == batch {
			if err := eng.Update(ctx, docs...); err != nil {
				b.Fatal(err)
			}
			docs = docs[:0]
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		result, err := eng.Search(ctx, "article", benchTerms[i%len(benchTerms)], search.Options{Limit: 20})
		if err != nil {
			b.Fatal(err)
		}
		_ = result
	}
}

// BenchmarkEngineSearchPaginated measures paged search latency including the
// extra counting pass.
func BenchmarkEngineSearchPaginated(b *testing.B) {
	eng := newBenchEngine(b)
	ctx := context.Background()
	for i := 0; i < 1000; i += 100 {
		docs := make([]document.Document, 100)
		for j := range docs {
			docs[j] = benchDoc(int64(i + j))
		}
		if err := eng.Update(ctx, docs...); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		result, err := eng.Paginate(ctx, "article", benchTerms[i%len(benchTerms)], nil, 1+i%5, 10)
		if err != nil {
			b.Fatal(err)
		}
		_ = result
	}
}
