// Package stemmer reduces tokens to normalized stems. Implementations are
// pluggable per language; all of them are pure functions so the same token
// always yields the same stem.
package stemmer

import (
	"sort"

	"github.com/blevesearch/snowballstem"
	"github.com/blevesearch/snowballstem/danish"
	"github.com/blevesearch/snowballstem/dutch"
	"github.com/blevesearch/snowballstem/english"
	"github.com/blevesearch/snowballstem/french"
	"github.com/blevesearch/snowballstem/german"
	"github.com/blevesearch/snowballstem/porter"
	"github.com/blevesearch/snowballstem/portuguese"
	"github.com/blevesearch/snowballstem/romanian"
	"github.com/blevesearch/snowballstem/russian"
	"github.com/blevesearch/snowballstem/spanish"
	"github.com/blevesearch/snowballstem/swedish"

	"github.com/scoutdb/scoutdb/pkg/errors"
)

// Stemmer reduces a single token to its stem.
type Stemmer interface {
	Stem(token string) string
	Language() string
}

// Null returns every token unchanged. Useful when stemming is undesired,
// e.g. for indexing identifiers or languages without a Snowball algorithm.
type Null struct{}

func (Null) Stem(token string) string { return token }
func (Null) Language() string         { return "none" }

// snowball adapts a generated Snowball algorithm to the Stemmer interface.
type snowball struct {
	language string
	stemFn   func(env *snowballstem.Env) bool
}

func (s *snowball) Stem(token string) string {
	env := snowballstem.NewEnv(token)
	s.stemFn(env)
	return env.Current()
}

func (s *snowball) Language() string { return s.language }

var algorithms = map[string]func(env *snowballstem.Env) bool{
	"danish":     danish.Stem,
	"dutch":      dutch.Stem,
	"english":    english.Stem, // Porter2
	"french":     french.Stem,
	"german":     german.Stem,
	"porter":     porter.Stem,
	"portuguese": portuguese.Stem,
	"romanian":   romanian.Stem,
	"russian":    russian.Stem,
	"spanish":    spanish.Stem,
	"swedish":    swedish.Stem,
}

// ForLanguage returns the stemmer for the given language name, or the null
// stemmer for "none" and "". Unknown languages are an error.
func ForLanguage(language string) (Stemmer, error) {
	switch language {
	case "", "none", "null":
		return Null{}, nil
	}
	stemFn, ok := algorithms[language]
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnsupportedLanguage, "no stemmer for language %q", language)
	}
	return &snowball{language: language, stemFn: stemFn}, nil
}

// Languages lists the supported Snowball language names, sorted.
func Languages() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
