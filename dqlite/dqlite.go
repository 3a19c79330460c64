// Package dqlite provides a backend on a dqlite node, giving statements
// written for SQLite a raft-replicated engine with the same SQL dialect.
package dqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/canonical/go-dqlite/app"

	"github.com/dynsql/dynsql/sqldriver"
)

// Type matches the sqlite statement variants; dqlite speaks the same
// dialect.
const Type = "sqlite"

type config struct {
	name           string
	address        string
	cluster        []string
	acquireTimeout time.Duration
	maxOpenConns   int
	maxIdleConns   int
}

// Option adjusts the node configuration.
type Option func(*config)

// WithName overrides the driver name registered with the Manager. The
// default is "dqlite".
func WithName(name string) Option {
	return func(cfg *config) { cfg.name = name }
}

// WithAddress sets the address this node binds for cluster traffic.
func WithAddress(address string) Option {
	return func(cfg *config) { cfg.address = address }
}

// WithCluster lists addresses of existing nodes to join.
func WithCluster(addresses ...string) Option {
	return func(cfg *config) { cfg.cluster = addresses }
}

// WithAcquireTimeout bounds connection checkout. Pair it with
// WithMaxOpenConns; an unbounded pool never makes callers wait.
func WithAcquireTimeout(d time.Duration) Option {
	return func(cfg *config) { cfg.acquireTimeout = d }
}

// WithMaxOpenConns caps the connection pool.
func WithMaxOpenConns(n int) Option {
	return func(cfg *config) { cfg.maxOpenConns = n }
}

// WithMaxIdleConns sets how many idle connections the pool retains.
func WithMaxIdleConns(n int) Option {
	return func(cfg *config) { cfg.maxIdleConns = n }
}

// Driver serves connections from a dqlite node. Close stops the node.
type Driver struct {
	*sqldriver.Driver
	app *app.App
}

// Open starts (or joins) a dqlite node storing its state under dir, waits
// for it to become ready and opens the named database on it.
func Open(ctx context.Context, dir, database string, options ...Option) (*Driver, error) {
	cfg := config{name: "dqlite"}
	for _, option := range options {
		option(&cfg)
	}

	var appOptions []app.Option
	if cfg.address != "" {
		appOptions = append(appOptions, app.WithAddress(cfg.address))
	}
	if len(cfg.cluster) > 0 {
		appOptions = append(appOptions, app.WithCluster(cfg.cluster))
	}

	node, err := app.New(dir, appOptions...)
	if err != nil {
		return nil, fmt.Errorf("starting dqlite node in %q: %w", dir, err)
	}
	if err := node.Ready(ctx); err != nil {
		node.Close()
		return nil, fmt.Errorf("waiting for dqlite node: %w", err)
	}
	db, err := node.Open(ctx, database)
	if err != nil {
		node.Close()
		return nil, fmt.Errorf("opening dqlite database %q: %w", database, err)
	}

	inner := sqldriver.New(db, sqldriver.Config{
		Name:           cfg.name,
		Type:           Type,
		KeyQuery:       "SELECT last_insert_rowid()",
		AcquireTimeout: cfg.acquireTimeout,
		MaxOpenConns:   cfg.maxOpenConns,
		MaxIdleConns:   cfg.maxIdleConns,
	})
	return &Driver{Driver: inner, app: node}, nil
}

// Close closes the database pool, hands leadership over if held and stops
// the node.
func (d *Driver) Close() error {
	err := d.Driver.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	d.app.Handover(ctx)
	if cerr := d.app.Close(); err == nil {
		err = cerr
	}
	return err
}
