package database

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect captures the few SQL differences between the supported stores.
// Queries are written with '?' placeholders and rebound per dialect.
type Dialect interface {
	Name() string
	DriverName() string
	Rebind(query string) string
	CreateIndexTableSQL(table string) []string
}

// DialectFor returns the dialect for the given driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "postgres":
		return postgresDialect{}, nil
	case "sqlite":
		return sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

type postgresDialect struct{}

func (postgresDialect) Name() string       { return "postgres" }
func (postgresDialect) DriverName() string { return "postgres" }

// Rebind converts '?' placeholders to the numbered '$n' form.
func (postgresDialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (postgresDialect) CreateIndexTableSQL(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			document_type VARCHAR(255) NOT NULL,
			document_id BIGINT NOT NULL,
			term VARCHAR(128) NOT NULL,
			length INT NOT NULL,
			num_hits INT NOT NULL
		)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_document_type_term_index ON %s (document_type, term)`, table, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_document_type_document_id_index ON %s (document_type, document_id)`, table, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_document_id_index ON %s (document_id)`, table, table),
	}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string       { return "sqlite" }
func (sqliteDialect) DriverName() string { return "sqlite" }

// Rebind is the identity for SQLite, which accepts '?' natively.
func (sqliteDialect) Rebind(query string) string { return query }

func (sqliteDialect) CreateIndexTableSQL(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document_type TEXT NOT NULL,
			document_id INTEGER NOT NULL,
			term TEXT NOT NULL,
			length INTEGER NOT NULL,
			num_hits INTEGER NOT NULL
		)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_document_type_term_index ON %s (document_type, term)`, table, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_document_type_document_id_index ON %s (document_type, document_id)`, table, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_document_id_index ON %s (document_id)`, table, table),
	}
}
