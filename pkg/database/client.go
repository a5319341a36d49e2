// Package database wraps database/sql with the two supported index store
// backends (PostgreSQL via lib/pq, SQLite via modernc.org/sqlite). It
// provides transaction helpers and classification of transient conflict
// errors that are safe to retry.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite" // pure Go SQLite driver (no CGO)

	"github.com/scoutdb/scoutdb/pkg/config"
)

// Client wraps a sql.DB together with its dialect.
type Client struct {
	DB      *sql.DB
	dialect Dialect
	cfg     config.DatabaseConfig
}

// New opens a connection pool for the configured driver and verifies it with
// a ping.
func New(cfg config.DatabaseConfig) (*Client, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.DriverName(), cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening %s connection: %w", cfg.Driver, err)
	}

	if cfg.Driver == "sqlite" {
		// A single writer avoids SQLITE_BUSY storms, and in-memory databases
		// exist per connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging %s: %w", cfg.Driver, err)
	}
	return &Client{DB: db, dialect: dialect, cfg: cfg}, nil
}

// Dialect returns the SQL dialect of the connected store.
func (c *Client) Dialect() Dialect {
	return c.dialect
}

// Ping verifies the connection is still alive.
func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *Client) Close() error {
	return c.DB.Close()
}

// InTx runs fn inside a transaction, rolling back on error and committing
// otherwise. The commit error is returned to the caller so conflict failures
// raised at commit time are visible to retry policies.
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// ExecContext runs a statement after rebinding placeholders for the dialect.
func (c *Client) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.DB.ExecContext(ctx, c.dialect.Rebind(query), args...)
}

// QueryContext runs a query after rebinding placeholders for the dialect.
func (c *Client) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.DB.QueryContext(ctx, c.dialect.Rebind(query), args...)
}

// QueryRowContext runs a single-row query after rebinding placeholders.
func (c *Client) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.DB.QueryRowContext(ctx, c.dialect.Rebind(query), args...)
}
