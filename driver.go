package dynsql

import (
	"context"
)

// Param is one ordered statement parameter produced by rendering. Name is
// the template variable the value was bound from, kept for diagnostics;
// drivers only need the order.
type Param struct {
	Name  string
	Value any
}

// Driver is a database backend usable by a Manager. Implementations are
// peers behind this interface; the core never type-switches on them.
type Driver interface {
	// Name identifies this driver instance within a Manager.
	Name() string

	// Type discriminates the database kind, for example "sqlite" or
	// "mysql". Statements may declare per-type variants which are
	// resolved against this value.
	Type() string

	// Placeholder returns the parameter marker for the seq-th parameter
	// (1-based) named name, for example "?", "$1" or ":name".
	Placeholder(seq int, name string) string

	// Acquire checks one connection out of the pool. The caller must
	// close it to return it.
	Acquire(ctx context.Context) (Connection, error)

	// Close releases the underlying pool.
	Close() error
}

// Connection is a single checked-out database connection. A transaction
// holds one Connection for its whole lifetime so that statements and
// generated-key retrieval observe the same session state.
type Connection interface {
	// Query runs sql and returns all rows as string-keyed maps.
	Query(ctx context.Context, sql string, params []Param) ([]map[string]any, error)

	// Exec runs sql and returns the affected-row count.
	Exec(ctx context.Context, sql string, params []Param) (int64, error)

	// LastInsertID returns the key generated by the most recent insert
	// on this connection.
	LastInsertID(ctx context.Context) (int64, error)

	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	// Close returns the connection to its pool.
	Close() error
}
