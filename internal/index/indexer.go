package index

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scoutdb/scoutdb/internal/document"
	"github.com/scoutdb/scoutdb/internal/stemmer"
	"github.com/scoutdb/scoutdb/pkg/config"
	"github.com/scoutdb/scoutdb/pkg/database"
	"github.com/scoutdb/scoutdb/pkg/errors"
	"github.com/scoutdb/scoutdb/pkg/logger"
	"github.com/scoutdb/scoutdb/pkg/metrics"
	"github.com/scoutdb/scoutdb/pkg/resilience"
)

// Indexer keeps the index table consistent with batches of documents. All
// write operations are all-or-nothing: a batch either lands completely or
// leaves the store untouched.
type Indexer struct {
	client  *database.Client
	stem    stemmer.Stemmer
	cfg     config.IndexConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
	table   string
}

// New creates an Indexer writing to the table named by cfg.TablePrefix.
func New(client *database.Client, stem stemmer.Stemmer, cfg config.IndexConfig, m *metrics.Metrics) *Indexer {
	if m == nil {
		m = metrics.Nop()
	}
	return &Indexer{
		client:  client,
		stem:    stem,
		cfg:     cfg,
		metrics: m,
		logger:  logger.WithComponent("indexer"),
		table:   TableName(cfg.TablePrefix),
	}
}

// Index writes the given documents to the index. Updates and inserts are
// handled uniformly: all existing rows of each document are deleted and the
// freshly computed rows inserted, inside one transaction covering the whole
// batch. On transient conflicts the transaction is retried up to the
// configured attempt count.
func (ix *Indexer) Index(ctx context.Context, docs ...document.Document) error {
	if len(docs) == 0 {
		return nil
	}
	start := time.Now()

	refs := make([]document.Ref, len(docs))
	for i, doc := range docs {
		refs[i] = document.RefOf(doc)
	}

	rows, exactColumns, err := ix.buildRows(ctx, docs)
	if err != nil {
		ix.metrics.IndexBatchesTotal.WithLabelValues("error").Inc()
		return errors.Wrap(errors.ErrIndexingFailed, err)
	}

	err = resilience.WithTimeout(ctx, ix.cfg.Timeout, "index batch", func(ctx context.Context) error {
		attempt := 0
		return resilience.Retry(ctx, "index batch",
			resilience.RetryConfig{MaxAttempts: ix.cfg.TransactionAttempts},
			database.IsRetryable,
			func() error {
				attempt++
				if attempt > 1 {
					ix.metrics.IndexRetriesTotal.Inc()
				}
				return ix.client.InTx(ctx, func(tx *sql.Tx) error {
					if err := ix.deleteRefsTx(ctx, tx, refs); err != nil {
						return err
					}
					return ix.insertRowsTx(ctx, tx, rows, exactColumns)
				})
			})
	})
	if err != nil {
		ix.metrics.IndexBatchesTotal.WithLabelValues("error").Inc()
		return errors.Wrap(errors.ErrIndexingFailed, err)
	}

	ix.metrics.IndexBatchesTotal.WithLabelValues("ok").Inc()
	ix.metrics.DocumentsIndexedTotal.Add(float64(len(docs)))
	ix.metrics.IndexRowsWrittenTotal.Add(float64(len(rows)))
	ix.metrics.IndexLatency.Observe(time.Since(start).Seconds())
	logger.FromContext(ctx).Debug("batch indexed",
		"component", "indexer",
		"documents", len(docs),
		"rows", len(rows),
		"duration", time.Since(start),
	)
	return nil
}

// DeleteFromIndex removes all rows of the given documents. Documents with
// no rows are a no-op.
func (ix *Indexer) DeleteFromIndex(ctx context.Context, refs ...document.Ref) error {
	if len(refs) == 0 {
		return nil
	}
	err := resilience.WithTimeout(ctx, ix.cfg.Timeout, "delete documents", func(ctx context.Context) error {
		query, args := ix.deleteRefsQuery(refs)
		_, err := ix.client.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		ix.metrics.DeletesTotal.WithLabelValues("documents", "error").Inc()
		return errors.Wrap(errors.ErrDeletionFailed, err)
	}
	ix.metrics.DeletesTotal.WithLabelValues("documents", "ok").Inc()
	return nil
}

// DeleteIndex removes every row of an entire document type. Used when a
// type is flushed as a whole.
func (ix *Indexer) DeleteIndex(ctx context.Context, documentType string) error {
	err := resilience.WithTimeout(ctx, ix.cfg.Timeout, "delete type", func(ctx context.Context) error {
		query := fmt.Sprintf("DELETE FROM %s WHERE document_type = ?", ix.table)
		_, err := ix.client.ExecContext(ctx, query, documentType)
		return err
	})
	if err != nil {
		ix.metrics.DeletesTotal.WithLabelValues("type", "error").Inc()
		return errors.Wrap(errors.ErrDeletionFailed, err)
	}
	ix.metrics.DeletesTotal.WithLabelValues("type", "ok").Inc()
	ix.logger.Debug("document type flushed", "document_type", documentType)
	return nil
}

// buildRows normalizes the batch into posting rows. Documents are analyzed
// concurrently; row order follows the batch order with terms sorted per
// document, so inserts are deterministic.
func (ix *Indexer) buildRows(ctx context.Context, docs []document.Document) ([]Row, []string, error) {
	analyses := make([]document.Analysis, len(docs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if doc.SearchableType() == "" {
				return errors.Wrapf(errors.ErrInvalidDocument, "document %d has an empty type", doc.SearchableID())
			}
			analyses[i] = document.Analyze(doc, ix.stem)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	columnSet := make(map[string]struct{})
	var rows []Row
	for _, analysis := range analyses {
		for name := range analysis.Exact {
			if err := ValidateColumnName(name); err != nil {
				return nil, nil, err
			}
			columnSet[name] = struct{}{}
		}

		// Truncation first: distinct stems sharing a 128-rune prefix
		// collapse into one term, so their hit counts must merge to keep
		// one row per (type, document, term) tuple.
		merged := make(map[string]document.TermStats, len(analysis.Terms))
		for term, stats := range analysis.Terms {
			if stats.Length > MaxTermLength {
				term = truncateRunes(term, MaxTermLength)
				stats.Length = MaxTermLength
			}
			entry := merged[term]
			entry.Hits += stats.Hits
			entry.Length = stats.Length
			merged[term] = entry
		}

		terms := make([]string, 0, len(merged))
		for term := range merged {
			terms = append(terms, term)
		}
		sort.Strings(terms)

		for _, term := range terms {
			stats := merged[term]
			rows = append(rows, Row{
				DocumentType: analysis.Ref.Type,
				DocumentID:   analysis.Ref.ID,
				Term:         term,
				Length:       stats.Length,
				NumHits:      stats.Hits,
				Exact:        analysis.Exact,
			})
		}
	}

	// Every row of the batch carries the same exact-match columns; rows of
	// documents without a value get NULL.
	exactColumns := make([]string, 0, len(columnSet))
	for name := range columnSet {
		exactColumns = append(exactColumns, name)
	}
	sort.Strings(exactColumns)

	return rows, exactColumns, nil
}

func (ix *Indexer) deleteRefsQuery(refs []document.Ref) (string, []any) {
	var b strings.Builder
	args := make([]any, 0, len(refs)*2)
	fmt.Fprintf(&b, "DELETE FROM %s WHERE ", ix.table)
	for i, ref := range refs {
		if i > 0 {
			b.WriteString(" OR ")
		}
		b.WriteString("(document_type = ? AND document_id = ?)")
		args = append(args, ref.Type, ref.ID)
	}
	return b.String(), args
}

func (ix *Indexer) deleteRefsTx(ctx context.Context, tx *sql.Tx, refs []document.Ref) error {
	query, args := ix.deleteRefsQuery(refs)
	_, err := tx.ExecContext(ctx, ix.client.Dialect().Rebind(query), args...)
	return err
}

// insertRowsTx bulk-inserts the rows in chunks. Chunking keeps each
// statement's placeholder count within driver limits; it has no effect on
// atomicity, which the surrounding transaction provides.
func (ix *Indexer) insertRowsTx(ctx context.Context, tx *sql.Tx, rows []Row, exactColumns []string) error {
	if len(rows) == 0 {
		return nil
	}

	columns := append([]string{"document_type", "document_id", "term", "length", "num_hits"}, exactColumns...)
	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

	chunkSize := ix.cfg.InsertChunkSize
	if chunkSize <= 0 {
		chunkSize = 100
	}

	for offset := 0; offset < len(rows); offset += chunkSize {
		end := offset + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[offset:end]

		var b strings.Builder
		fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", ix.table, strings.Join(columns, ", "))
		args := make([]any, 0, len(chunk)*len(columns))
		for i, row := range chunk {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(placeholders)
			args = append(args, row.DocumentType, row.DocumentID, row.Term, row.Length, row.NumHits)
			for _, column := range exactColumns {
				value, ok := row.Exact[column]
				if !ok {
					value = nil
				}
				args = append(args, value)
			}
		}

		if _, err := tx.ExecContext(ctx, ix.client.Dialect().Rebind(b.String()), args...); err != nil {
			return err
		}
	}
	return nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
