package document

import (
	"strings"
	"unicode/utf8"

	"github.com/scoutdb/scoutdb/internal/stemmer"
	"github.com/scoutdb/scoutdb/internal/tokenizer"
)

// TermStats describes one distinct stem within a document.
type TermStats struct {
	// Hits is the occurrence count of the stem across all free-text fields.
	Hits int
	// Length is the character (rune) length of the stem.
	Length int
}

// Analysis is the normalized form of one document: its term multiset and
// the exact-match values carried through unchanged.
type Analysis struct {
	Ref   Ref
	Terms map[string]TermStats
	Exact map[string]any
}

// Analyze runs the normalization pipeline for a document: partition fields
// into free text and exact values, lower-case and tokenize the free text,
// stem each token, and count occurrences per distinct stem.
func Analyze(doc Document, stem stemmer.Stemmer) Analysis {
	analysis := Analysis{
		Ref:   RefOf(doc),
		Terms: make(map[string]TermStats),
		Exact: make(map[string]any),
	}

	for name, value := range doc.SearchableFields() {
		switch v := value.(type) {
		case FreeText:
			for _, token := range tokenizer.Tokenize(strings.ToLower(string(v))) {
				term := stem.Stem(token)
				if term == "" {
					continue
				}
				stats := analysis.Terms[term]
				if stats.Hits == 0 {
					stats.Length = utf8.RuneCountInString(term)
				}
				stats.Hits++
				analysis.Terms[term] = stats
			}
		case ExactValue:
			analysis.Exact[name] = v.Value
		}
	}

	return analysis
}

// MapDocument is a plain value implementation of Document, used by the CLI
// and by hosts that assemble searchable data dynamically.
type MapDocument struct {
	Type   string
	ID     int64
	Fields map[string]FieldValue
}

func (d MapDocument) SearchableType() string { return d.Type }

func (d MapDocument) SearchableID() int64 { return d.ID }

func (d MapDocument) SearchableFields() map[string]FieldValue { return d.Fields }
