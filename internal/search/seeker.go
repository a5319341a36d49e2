// Package search turns raw query strings into ranked, paginated document
// identifier sets. The whole scoring pipeline runs inside the store as one
// chained query so no document text is pulled into application memory.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/scoutdb/scoutdb/internal/index"
	"github.com/scoutdb/scoutdb/internal/stemmer"
	"github.com/scoutdb/scoutdb/internal/tokenizer"
	"github.com/scoutdb/scoutdb/pkg/config"
	"github.com/scoutdb/scoutdb/pkg/database"
	"github.com/scoutdb/scoutdb/pkg/errors"
	"github.com/scoutdb/scoutdb/pkg/logger"
	"github.com/scoutdb/scoutdb/pkg/metrics"
	"github.com/scoutdb/scoutdb/pkg/resilience"
)

// Options hold the per-call search parameters beyond the query string.
type Options struct {
	// Filters adds equality predicates on exact-match columns to every
	// stage of the pipeline (e.g. tenant scoping).
	Filters map[string]any
	// Page and PageSize enable pagination; Page counts from 1.
	Page     int
	PageSize int
	// Limit truncates the result set without pagination. Ignored when
	// PageSize is set.
	Limit int
}

// Result is the outcome of one search: ranked identifiers plus the total
// number of matching documents.
type Result struct {
	Identifiers []int64
	TotalHits   int
}

// Seeker compiles queries against the index table.
type Seeker struct {
	client  *database.Client
	stem    stemmer.Stemmer
	cfg     config.SearchConfig
	table   string
	metrics *metrics.Metrics
}

// New creates a Seeker reading from the table named by tablePrefix.
func New(client *database.Client, stem stemmer.Stemmer, cfg config.SearchConfig, tablePrefix string, m *metrics.Metrics) *Seeker {
	if m == nil {
		m = metrics.Nop()
	}
	return &Seeker{
		client:  client,
		stem:    stem,
		cfg:     cfg,
		table:   index.TableName(tablePrefix),
		metrics: m,
	}
}

// Search runs the ranked query for one document type. The query string is
// normalized exactly like document text at indexing time (lower-case,
// tokenize, stem); an empty keyword list short-circuits to an empty result
// without touching the store.
func (s *Seeker) Search(ctx context.Context, documentType string, query string, opts Options) (*Result, error) {
	start := time.Now()

	keywords := s.normalize(query)
	if len(keywords) == 0 {
		s.metrics.SearchQueriesTotal.WithLabelValues("empty_query").Inc()
		return &Result{Identifiers: []int64{}, TotalHits: 0}, nil
	}

	filters, err := sortedFilters(opts.Filters)
	if err != nil {
		s.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	var result *Result
	err = resilience.WithTimeout(ctx, s.cfg.Timeout, "search", func(ctx context.Context) error {
		var err error
		result, err = s.run(ctx, documentType, keywords, filters, opts)
		return err
	})
	if err != nil {
		s.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		return nil, errors.Wrap(errors.ErrQueryFailed, err)
	}

	if len(result.Identifiers) == 0 {
		s.metrics.SearchQueriesTotal.WithLabelValues("zero_result").Inc()
	} else {
		s.metrics.SearchQueriesTotal.WithLabelValues("hit").Inc()
	}
	s.metrics.SearchResultsCount.Observe(float64(len(result.Identifiers)))
	logger.FromContext(ctx).Debug("search executed",
		"component", "seeker",
		"document_type", documentType,
		"keywords", keywords,
		"results", len(result.Identifiers),
		"total_hits", result.TotalHits,
		"duration", time.Since(start),
	)
	return result, nil
}

// normalize lower-cases, tokenizes, and stems the query string, capping
// each keyword at the stored term length so overlong stems match their
// truncated postings. Keywords are intentionally not deduplicated; ranking
// depends on repeated keywords scoring as independent matches.
func (s *Seeker) normalize(query string) []string {
	tokens := tokenizer.Tokenize(strings.ToLower(query))
	keywords := make([]string, 0, len(tokens))
	for _, token := range tokens {
		stemmed := s.stem.Stem(token)
		if stemmed == "" {
			continue
		}
		if runes := []rune(stemmed); len(runes) > index.MaxTermLength {
			stemmed = string(runes[:index.MaxTermLength])
		}
		keywords = append(keywords, stemmed)
	}
	return keywords
}

func (s *Seeker) run(ctx context.Context, documentType string, keywords []string, filters []filter, opts Options) (*Result, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	limit := opts.Limit
	if opts.PageSize > 0 {
		limit = opts.PageSize
	}

	base, baseArgs := s.buildPipeline(documentType, keywords, filters)

	query := base.String()
	args := baseArgs
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	if opts.PageSize > 0 && page > 1 {
		query += " OFFSET ?"
		args = append(args, (page-1)*opts.PageSize)
	}

	rows, err := s.client.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	identifiers := make([]int64, 0, limit)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		identifiers = append(identifiers, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// A truncated result set cannot report its own total; relational
	// engines cannot emit a limited page and the full group count in a
	// single pass, so the grouped query runs again uncapped and counted.
	totalHits := len(identifiers)
	if limit > 0 {
		totalHits, err = s.countMatches(ctx, documentType, keywords, filters)
		if err != nil {
			return nil, err
		}
	}

	return &Result{Identifiers: identifiers, TotalHits: totalHits}, nil
}

func (s *Seeker) countMatches(ctx context.Context, documentType string, keywords []string, filters []filter) (int, error) {
	with, withArgs := s.buildCTEs(documentType, keywords, filters)

	var b strings.Builder
	b.WriteString(with)
	b.WriteString(" SELECT COUNT(*) FROM (SELECT document_id FROM scored GROUP BY document_id")
	args := withArgs
	if s.cfg.RequireMatchForAllTokens {
		b.WriteString(" HAVING COUNT(DISTINCT term) >= ?")
		args = append(args, len(keywords))
	}
	b.WriteString(") AS matches")

	var total int
	if err := s.client.QueryRowContext(ctx, b.String(), args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// buildPipeline assembles the full ranked query: the shared CTE chain plus
// grouping, the all-tokens predicate, and the deterministic ordering.
func (s *Seeker) buildPipeline(documentType string, keywords []string, filters []filter) (*strings.Builder, []any) {
	with, args := s.buildCTEs(documentType, keywords, filters)

	var b strings.Builder
	b.WriteString(with)
	b.WriteString(" SELECT document_id FROM scored GROUP BY document_id")
	if s.cfg.RequireMatchForAllTokens {
		b.WriteString(" HAVING COUNT(DISTINCT term) >= ?")
		args = append(args, len(keywords))
	}
	b.WriteString(" ORDER BY SQRT(COUNT(DISTINCT term)) * SUM(score) DESC, document_id ASC")
	return &b, args
}

// buildCTEs emits the logical pipeline as chained common table expressions:
//
//	corpus           — distinct document count of the type (IDF corpus size)
//	matching_terms   — stored terms matching each keyword, tagged with the
//	                   query keyword's length (not the stored term's)
//	term_frequencies — total occurrences of each matching term in the type
//	scored           — per-row IDF/TF/term-deviation score
func (s *Seeker) buildCTEs(documentType string, keywords []string, filters []filter) (string, []any) {
	filterSQL, typeAndFilterArgs := buildFilterSQL(documentType, filters)

	var b strings.Builder
	var args []any

	b.WriteString("WITH corpus AS (")
	b.WriteString("SELECT COUNT(DISTINCT document_id) AS size FROM " + s.table + " WHERE " + filterSQL)
	b.WriteString(")")
	args = append(args, typeAndFilterArgs...)

	b.WriteString(", matching_terms AS (")
	for i, keyword := range keywords {
		if i > 0 {
			b.WriteString(" UNION ALL ")
		}
		b.WriteString("SELECT DISTINCT term, CAST(? AS INT) AS keyword_length FROM " + s.table + " WHERE " + filterSQL)
		args = append(args, utf8.RuneCountInString(keyword))
		args = append(args, typeAndFilterArgs...)
		if s.cfg.WildcardLastToken && i == len(keywords)-1 {
			// Tokenizer output cannot contain LIKE metacharacters, so the
			// prefix pattern needs no escaping.
			b.WriteString(" AND term LIKE ?")
			args = append(args, keyword+"%")
		} else {
			b.WriteString(" AND term = ?")
			args = append(args, keyword)
		}
	}
	b.WriteString(")")

	b.WriteString(", term_frequencies AS (")
	b.WriteString("SELECT term, SUM(num_hits) AS total_hits FROM " + s.table + " WHERE " + filterSQL)
	b.WriteString(" AND term IN (SELECT term FROM matching_terms) GROUP BY term")
	b.WriteString(")")
	args = append(args, typeAndFilterArgs...)

	b.WriteString(", scored AS (")
	b.WriteString("SELECT i.document_id AS document_id, i.term AS term, ")
	b.WriteString("(1 + LN((CAST(? AS DOUBLE PRECISION) * c.size) / " +
		"((CASE WHEN tf.total_hits > 1 THEN tf.total_hits ELSE 1 END) + 1)))" +
		" * ((CAST(? AS DOUBLE PRECISION) * SQRT(i.num_hits))" +
		" + (CAST(? AS DOUBLE PRECISION) * SQRT(CAST(1 AS DOUBLE PRECISION) / (ABS(i.length - mt.keyword_length) + 1))))" +
		" AS score")
	args = append(args,
		s.cfg.InverseDocumentFrequencyWeight,
		s.cfg.TermFrequencyWeight,
		s.cfg.TermDeviationWeight,
	)
	b.WriteString(" FROM " + s.table + " i")
	b.WriteString(" JOIN matching_terms mt ON mt.term = i.term")
	b.WriteString(" JOIN term_frequencies tf ON tf.term = i.term")
	b.WriteString(" CROSS JOIN corpus c")
	filterSQLQualified, qualifiedArgs := buildQualifiedFilterSQL("i", documentType, filters)
	b.WriteString(" WHERE " + filterSQLQualified)
	args = append(args, qualifiedArgs...)
	b.WriteString(")")

	return b.String(), args
}

// filter is one exact-match equality predicate with a validated column name.
type filter struct {
	column string
	value  any
}

func sortedFilters(values map[string]any) ([]filter, error) {
	if len(values) == 0 {
		return nil, nil
	}
	columns := make([]string, 0, len(values))
	for column := range values {
		if err := index.ValidateColumnName(column); err != nil {
			return nil, err
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)
	filters := make([]filter, 0, len(columns))
	for _, column := range columns {
		filters = append(filters, filter{column: column, value: values[column]})
	}
	return filters, nil
}

func buildFilterSQL(documentType string, filters []filter) (string, []any) {
	var b strings.Builder
	b.WriteString("document_type = ?")
	args := []any{documentType}
	for _, f := range filters {
		fmt.Fprintf(&b, " AND %s = ?", f.column)
		args = append(args, f.value)
	}
	return b.String(), args
}

func buildQualifiedFilterSQL(alias string, documentType string, filters []filter) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s.document_type = ?", alias)
	args := []any{documentType}
	for _, f := range filters {
		fmt.Fprintf(&b, " AND %s.%s = ?", alias, f.column)
		args = append(args, f.value)
	}
	return b.String(), args
}
