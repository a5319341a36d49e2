// Package document defines the contract between the host application and
// the search engine: what a searchable document is, how its fields are
// classified, and how field text is normalized into index terms.
package document

// FieldValue is the tagged variant a searchable field carries: either free
// text that is tokenized and stemmed, or an exact-match value stored
// verbatim in its own index column.
type FieldValue interface {
	isFieldValue()
}

// FreeText is field content that participates in full-text matching.
type FreeText string

func (FreeText) isFieldValue() {}

// ExactValue is a scalar stored in a dedicated column of the index table,
// filterable with equality predicates (e.g. a tenant identifier). It is
// never tokenized.
type ExactValue struct {
	Value any
}

func (ExactValue) isFieldValue() {}

// Document is the capability a host object must provide to become
// searchable.
type Document interface {
	// SearchableType is the logical collection the document belongs to.
	SearchableType() string
	// SearchableID is the document's numeric identifier within its type.
	SearchableID() int64
	// SearchableFields maps field names to their free-text or exact values.
	SearchableFields() map[string]FieldValue
}

// Ref identifies a document in the index without its field data.
type Ref struct {
	Type string
	ID   int64
}

// RefOf returns the index reference of a document.
func RefOf(doc Document) Ref {
	return Ref{Type: doc.SearchableType(), ID: doc.SearchableID()}
}
