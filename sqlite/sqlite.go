// Package sqlite provides a SQLite backend built on mattn/go-sqlite3.
//
// SQLite serialises writers, so keep transactions short. In-memory
// databases need a shared-cache DSN such as
// "file:name?mode=memory&cache=shared" to be visible across pooled
// connections.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dynsql/dynsql/sqldriver"
)

// Type is the database kind statements target with databaseType="sqlite".
const Type = "sqlite"

// Option adjusts the backend configuration.
type Option func(*sqldriver.Config)

// WithName overrides the driver name registered with the Manager. The
// default is "sqlite".
func WithName(name string) Option {
	return func(cfg *sqldriver.Config) { cfg.Name = name }
}

// WithAcquireTimeout bounds connection checkout. Pair it with
// WithMaxOpenConns; an unbounded pool never makes callers wait.
func WithAcquireTimeout(d time.Duration) Option {
	return func(cfg *sqldriver.Config) { cfg.AcquireTimeout = d }
}

// WithMaxOpenConns caps the connection pool.
func WithMaxOpenConns(n int) Option {
	return func(cfg *sqldriver.Config) { cfg.MaxOpenConns = n }
}

// WithMaxIdleConns sets how many idle connections the pool retains.
func WithMaxIdleConns(n int) Option {
	return func(cfg *sqldriver.Config) { cfg.MaxIdleConns = n }
}

// Open opens a SQLite database at dsn and wraps it as a driver.
func Open(dsn string, options ...Option) (*sqldriver.Driver, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %q: %w", dsn, err)
	}
	cfg := sqldriver.Config{
		Name:     "sqlite",
		Type:     Type,
		KeyQuery: "SELECT last_insert_rowid()",
	}
	for _, option := range options {
		option(&cfg)
	}
	return sqldriver.New(db, cfg), nil
}
