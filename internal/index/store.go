// Package index owns the persisted inverted index: the flat posting table
// and the transactional protocol that keeps it consistent with the
// documents it mirrors.
package index

import (
	"context"
	"fmt"
	"regexp"

	"github.com/scoutdb/scoutdb/pkg/database"
	"github.com/scoutdb/scoutdb/pkg/errors"
)

// MaxTermLength bounds the stored term column (varchar(128)). Longer stems
// are truncated at write time so the denormalized length always equals the
// stored term's length.
const MaxTermLength = 128

// Row is one posting: a (type, document, term) tuple with its hit count,
// the term's character length, and any exact-match column values.
type Row struct {
	DocumentType string
	DocumentID   int64
	Term         string
	Length       int
	NumHits      int
	Exact        map[string]any
}

// TableName returns the index table name for the configured prefix.
func TableName(prefix string) string {
	return prefix + "index"
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateColumnName guards dynamically named exact-match columns before
// they are interpolated into SQL as identifiers.
func ValidateColumnName(name string) error {
	if !identifierPattern.MatchString(name) {
		return errors.Wrapf(errors.ErrInvalidDocument, "exact-match field %q is not a valid column name", name)
	}
	return nil
}

// EnsureSchema creates the index table and its secondary indexes if they do
// not exist. Exact-match columns are part of the host's own migrations and
// are not managed here.
func EnsureSchema(ctx context.Context, client *database.Client, tablePrefix string) error {
	for _, stmt := range client.Dialect().CreateIndexTableSQL(TableName(tablePrefix)) {
		if _, err := client.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating index schema: %w", err)
		}
	}
	return nil
}
