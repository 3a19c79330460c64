package dynsql

import (
	"context"
	"fmt"

	"github.com/dynsql/dynsql/internal/registry"
	"github.com/dynsql/dynsql/internal/template"
	"github.com/dynsql/dynsql/internal/value"
)

// Session executes statements against one driver. Outside a transaction
// every call borrows an ephemeral pooled connection; between Begin and
// Commit or Rollback all calls share the transaction's pinned connection.
//
// A Session is cheap to create and not safe for concurrent use while a
// transaction is active.
type Session struct {
	manager *Manager
	driver  Driver
	tx      *txContext
}

// Begin starts a transaction, pinning one connection to this session.
// Beginning while a transaction is already active is an error, not a
// nested transaction.
func (s *Session) Begin(ctx context.Context) error {
	if s.tx != nil && s.tx.active() {
		return fmt.Errorf("%w on driver %q", ErrTxActive, s.driver.Name())
	}
	conn, err := s.driver.Acquire(ctx)
	if err != nil {
		return err
	}
	if err := conn.Begin(ctx); err != nil {
		conn.Close()
		return err
	}
	s.tx = newTxContext(conn, s.driver.Name(), s.manager.logger)
	return nil
}

// Commit commits the active transaction and releases its connection.
// Without an active transaction it is a no-op.
func (s *Session) Commit(ctx context.Context) error {
	return s.resolveTx(ctx, Connection.Commit)
}

// Rollback rolls back the active transaction and releases its connection.
// Without an active transaction it is a no-op.
func (s *Session) Rollback(ctx context.Context) error {
	return s.resolveTx(ctx, Connection.Rollback)
}

func (s *Session) resolveTx(ctx context.Context, end func(Connection, context.Context) error) error {
	tx := s.tx
	s.tx = nil
	if tx == nil || !tx.resolve() {
		return nil
	}
	err := end(tx.conn, ctx)
	if cerr := tx.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

// Transaction runs fn inside a transaction. It commits when fn returns
// nil and rolls back when fn returns an error or panics. Nesting rules
// are Begin's.
func (s *Session) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := s.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		// No-op once Commit has resolved the transaction. The parent
		// context may already be cancelled when fn failed, which must
		// not stop the rollback.
		s.Rollback(context.WithoutCancel(ctx))
	}()
	if err := fn(ctx); err != nil {
		return err
	}
	return s.Commit(ctx)
}

// acquire returns the connection calls should run on. Inside a transaction
// that is the pinned connection and release is a no-op; otherwise a pooled
// connection is checked out for the single call.
func (s *Session) acquire(ctx context.Context) (conn Connection, release func(), err error) {
	if s.tx != nil && s.tx.active() {
		return s.tx.conn, func() {}, nil
	}
	conn, err = s.driver.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	return conn, func() { conn.Close() }, nil
}

// render resolves id against this session's database type and renders its
// template with args bound.
func (s *Session) render(id string, args any) (*registry.Statement, *template.Rendered, error) {
	stmt, ok := s.manager.store.Find(id, s.driver.Type())
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrStatementNotFound, id)
	}
	if stmt.SQL == "" {
		return nil, nil, fmt.Errorf("%w: %q has an empty body", ErrStatementNotFound, id)
	}

	nodes := template.Cached(stmt.CacheKey(), stmt.SQL)
	root := value.ToValue(args)
	rendered, err := template.Render(nodes, root, s.driver.Placeholder, s.includeResolver(stmt))
	if err != nil {
		return nil, nil, fmt.Errorf("rendering %q: %w", id, err)
	}
	return stmt, rendered, nil
}

// includeResolver resolves include references for stmt, preferring its own
// namespace over fully-qualified ids.
func (s *Session) includeResolver(stmt *registry.Statement) template.IncludeFunc {
	return func(refid string) ([]template.Node, bool) {
		for _, id := range []string{stmt.Namespace + "." + refid, refid} {
			if frag, ok := s.manager.store.Find(id, s.driver.Type()); ok {
				return template.Cached(frag.CacheKey(), frag.SQL), true
			}
		}
		return nil, false
	}
}

// exportParams converts rendered parameters to driver-native values.
func exportParams(in []template.Param) []Param {
	if len(in) == 0 {
		return nil
	}
	out := make([]Param, len(in))
	for i, p := range in {
		out[i] = Param{Name: p.Name, Value: p.Value.Export()}
	}
	return out
}
