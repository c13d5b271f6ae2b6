// Package store is the relational store behind the merge: schema management,
// per-entity upserts and the readers used by the CLI. It speaks to sqlite
// (modernc.org/sqlite, the default) and postgres (lib/pq) through
// database/sql. Statements are written with ? placeholders and rebound for
// postgres.
//
// Runs against one store must be serialized by the caller; the store takes
// no run-level lock.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/baely/walletsync/internal/common/errors"
)

// Dialect selects the SQL flavour of the underlying database.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// ParseDialect maps a driver name to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pq":
		return Postgres, nil
	}
	return SQLite, errors.Wrap(errors.ErrInvalidInput, "unknown driver %q", driver)
}

// Client is a handle on one store.
type Client struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// Open connects to the store at dsn using the named driver.
func Open(driver, dsn string) (*Client, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}
	if dialect == SQLite {
		return OpenSQLite(dsn)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	return &Client{db: db, dialect: Postgres, logger: slog.Default()}, nil
}

// NewClient connects to postgres from discrete connection settings.
func NewClient(user, password, host, port, db string) (*Client, error) {
	connString := fmt.Sprintf("user=%s password=%s host=%s port=%s dbname=%s sslmode=disable", user, password, host, port, db)
	return Open("postgres", connString)
}

// OpenSQLite opens (or creates) a sqlite store file with foreign keys
// enforced. The pool is limited to one connection, so everything inside a
// transaction must go through that transaction.
func OpenSQLite(path string) (*Client, error) {
	dsn := path
	if !strings.HasPrefix(path, "file:") && !strings.Contains(path, "?") {
		dsn = path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite %s", path)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "enable foreign keys")
	}

	return &Client{db: db, dialect: SQLite, logger: slog.Default()}, nil
}

// WithLogger sets the logger used for schema and migration messages.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// Close closes the underlying database.
func (c *Client) Close() error {
	return c.db.Close()
}

// DB exposes the underlying database handle.
func (c *Client) DB() *sql.DB {
	return c.db
}

// Dialect reports which SQL flavour the client speaks.
func (c *Client) Dialect() Dialect {
	return c.dialect
}

// WithTx runs fn inside one transaction. The transaction commits when fn
// returns nil and rolls back on an error or a panic.
func (c *Client) WithTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	sqlTx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	tx := &Tx{tx: sqlTx, dialect: c.dialect}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			c.logger.Error("Rollback failed", "error", rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	return nil
}

// Tx carries the merge operations of one run.
type Tx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *Tx) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return t.tx.ExecContext(ctx, rebind(t.dialect, query), args...)
}

func (t *Tx) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return t.tx.QueryRowContext(ctx, rebind(t.dialect, query), args...)
}

func (t *Tx) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, rebind(t.dialect, query), args...)
}

func (c *Client) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return c.db.QueryRowContext(ctx, rebind(c.dialect, query), args...)
}

func (c *Client) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, rebind(c.dialect, query), args...)
}

// rebind rewrites ? placeholders as $1, $2... for postgres.
func rebind(d Dialect, query string) string {
	if d != Postgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
