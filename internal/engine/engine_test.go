package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutdb/scoutdb/internal/document"
	"github.com/scoutdb/scoutdb/internal/index"
	"github.com/scoutdb/scoutdb/internal/search"
	"github.com/scoutdb/scoutdb/pkg/config"
	"github.com/scoutdb/scoutdb/pkg/errors"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = ""

	eng, err := Open(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	require.NoError(t, index.EnsureSchema(context.Background(), eng.Client(), cfg.Index.TablePrefix))
	return eng
}

func articleDoc(id int64, title string, body string) document.MapDocument {
	return document.MapDocument{
		Type: "article",
		ID:   id,
		Fields: map[string]document.FieldValue{
			"title": document.FreeText(title),
			"body":  document.FreeText(body),
		},
	}
}

func TestEngineUpdateThenSearch(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.Update(ctx,
		articleDoc(1, "Go database drivers", "Connecting Go programs to SQL databases."),
		articleDoc(2, "Cooking pasta", "Boil water, add salt, add pasta."),
		articleDoc(3, "Database indexing", "How databases keep indexes consistent under load."),
	))

	result, err := eng.Search(ctx, "article", "database", search.Options{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 3}, result.Identifiers)
	assert.Equal(t, 2, result.TotalHits)

	result, err = eng.Search(ctx, "article", "pasta", search.Options{})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, result.Identifiers)
}

func TestEngineSearchMatchesStemmedVariants(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.Update(ctx,
		articleDoc(1, "Running a marathon", "Notes from running twenty six miles."),
	))

	// Default language is english, so query and document inflections meet
	// at the same stem.
	result, err := eng.Search(ctx, "article", "runs", search.Options{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, result.Identifiers)
}

func TestEngineUpdateReplacesPreviousContent(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.Update(ctx, articleDoc(1, "Old headline", "stale words")))
	require.NoError(t, eng.Update(ctx, articleDoc(1, "New headline", "fresh words")))

	result, err := eng.Search(ctx, "article", "stale", search.Options{})
	require.NoError(t, err)
	assert.Empty(t, result.Identifiers)

	result, err = eng.Search(ctx, "article", "fresh", search.Options{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, result.Identifiers)
}

func TestEngineDeleteRemovesDocument(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.Update(ctx,
		articleDoc(1, "Keep me", "still here"),
		articleDoc(2, "Drop me", "still here"),
	))
	require.NoError(t, eng.Delete(ctx, document.Ref{Type: "article", ID: 2}))

	result, err := eng.Search(ctx, "article", "still here", search.Options{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, result.Identifiers)
}

func TestEngineFlushDropsOnlyOneType(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.Update(ctx,
		articleDoc(1, "An article", "shared words"),
		document.MapDocument{
			Type:   "comment",
			ID:     1,
			Fields: map[string]document.FieldValue{"body": document.FreeText("shared words")},
		},
	))
	require.NoError(t, eng.Flush(ctx, "article"))

	result, err := eng.Search(ctx, "article", "shared", search.Options{})
	require.NoError(t, err)
	assert.Empty(t, result.Identifiers)

	result, err = eng.Search(ctx, "comment", "shared", search.Options{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, result.Identifiers)
}

func TestEnginePaginate(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	docs := make([]document.Document, 0, 5)
	for id := int64(1); id <= 5; id++ {
		docs = append(docs, articleDoc(id, "Common topic", "repeated"))
	}
	require.NoError(t, eng.Update(ctx, docs...))

	page, err := eng.Paginate(ctx, "article", "topic", nil, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page.Identifiers, 2)
	assert.Equal(t, 5, page.TotalHits)

	page, err = eng.Paginate(ctx, "article", "topic", nil, 3, 2)
	require.NoError(t, err)
	assert.Len(t, page.Identifiers, 1)
	assert.Equal(t, 5, page.TotalHits)
}

func TestOpenRejectsUnknownStemmerLanguage(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Driver = "sqlite"
	cfg.Stemmer.Language = "klingon"

	_, err := Open(cfg, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnsupportedLanguage)
}
