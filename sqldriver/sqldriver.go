// Package sqldriver adapts a database/sql pool to the driver interfaces
// consumed by the dynsql core. Engine packages wrap it with their own
// defaults rather than reimplementing connection handling.
package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dynsql/dynsql"
)

// ErrNoGeneratedKey is returned by LastInsertID when neither the engine nor
// a configured key query reported one.
var ErrNoGeneratedKey = errors.New("no generated key available")

// PlaceholderFunc produces the parameter marker for the seq-th parameter
// (1-based) named name.
type PlaceholderFunc func(seq int, name string) string

// Question emits "?" markers (SQLite, MySQL).
func Question(int, string) string { return "?" }

// Dollar emits "$1", "$2", ... markers (PostgreSQL).
func Dollar(seq int, _ string) string { return "$" + strconv.Itoa(seq) }

// Named emits ":name" markers (Oracle style).
func Named(_ int, name string) string { return ":" + name }

// Config describes one database backend.
type Config struct {
	// Name identifies the driver within a Manager.
	Name string
	// Type is the database kind used for statement-variant resolution.
	Type string
	// Placeholder defaults to Question.
	Placeholder PlaceholderFunc
	// KeyQuery, when set, is run to fetch the last generated key instead
	// of trusting the engine's statement result. SQLite uses
	// "SELECT last_insert_rowid()".
	KeyQuery string
	// AcquireTimeout bounds connection checkout; zero means no bound
	// beyond the caller's context. It only bites when MaxOpenConns caps
	// the pool, otherwise checkout grows the pool instead of waiting.
	AcquireTimeout time.Duration
	// MaxOpenConns and MaxIdleConns size the pool when positive; zero
	// keeps the database/sql defaults.
	MaxOpenConns int
	MaxIdleConns int
}

// Driver serves connections from a database/sql pool.
type Driver struct {
	db  *sql.DB
	cfg Config
}

// New wraps db. The pool's lifetime passes to the returned driver; Close
// closes it.
func New(db *sql.DB, cfg Config) *Driver {
	if cfg.Placeholder == nil {
		cfg.Placeholder = Question
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	return &Driver{db: db, cfg: cfg}
}

func (d *Driver) Name() string { return d.cfg.Name }
func (d *Driver) Type() string { return d.cfg.Type }

func (d *Driver) Placeholder(seq int, name string) string {
	return d.cfg.Placeholder(seq, name)
}

// Acquire checks one connection out of the pool, honouring the configured
// acquire timeout.
func (d *Driver) Acquire(ctx context.Context) (dynsql.Connection, error) {
	if d.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.AcquireTimeout)
		defer cancel()
	}
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring %q connection: %w", d.cfg.Name, err)
	}
	return &connection{conn: conn, keyQuery: d.cfg.KeyQuery}, nil
}

func (d *Driver) Close() error { return d.db.Close() }

// connection pins one *sql.Conn so that transaction statements and
// generated-key retrieval share a physical connection.
type connection struct {
	conn     *sql.Conn
	keyQuery string
	lastID   int64
	haveID   bool
}

func (c *connection) Query(ctx context.Context, query string, params []dynsql.Param) ([]map[string]any, error) {
	rows, err := c.conn.QueryContext(ctx, query, args(params)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	fields := make([]any, len(columns))
	for rows.Next() {
		cells := make([]any, len(columns))
		for i := range cells {
			fields[i] = &cells[i]
		}
		if err := rows.Scan(fields...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = cells[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (c *connection) Exec(ctx context.Context, query string, params []dynsql.Param) (int64, error) {
	result, err := c.conn.ExecContext(ctx, query, args(params)...)
	if err != nil {
		return 0, err
	}
	if id, err := result.LastInsertId(); err == nil {
		c.lastID, c.haveID = id, true
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (c *connection) LastInsertID(ctx context.Context) (int64, error) {
	if c.keyQuery != "" {
		var id int64
		if err := c.conn.QueryRowContext(ctx, c.keyQuery).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	if !c.haveID {
		return 0, ErrNoGeneratedKey
	}
	return c.lastID, nil
}

func (c *connection) Begin(ctx context.Context) error {
	_, err := c.conn.ExecContext(ctx, "BEGIN")
	return err
}

func (c *connection) Commit(ctx context.Context) error {
	_, err := c.conn.ExecContext(ctx, "COMMIT")
	return err
}

func (c *connection) Rollback(ctx context.Context) error {
	_, err := c.conn.ExecContext(ctx, "ROLLBACK")
	return err
}

func (c *connection) Close() error { return c.conn.Close() }

func args(params []dynsql.Param) []any {
	if len(params) == 0 {
		return nil
	}
	out := make([]any, len(params))
	for i, p := range params {
		out[i] = p.Value
	}
	return out
}
