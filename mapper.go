package dynsql

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/dynsql/dynsql/internal/registry"
	"github.com/dynsql/dynsql/internal/value"
)

// Select renders the statement id with args bound, runs it as a query and
// decodes the rows into dest. dest pointing at a slice receives every row;
// with exactly one row in the result, struct, map and (for single-column
// rows) scalar destinations work too.
func (s *Session) Select(ctx context.Context, id string, args any, dest any) error {
	stmt, rendered, err := s.render(id, args)
	if err != nil {
		return err
	}
	conn, release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	start := time.Now()
	rows, err := conn.Query(ctx, rendered.SQL, exportParams(rendered.Params))
	s.manager.logger.DebugContext(ctx, "query",
		"statement", stmt.FQID(), "driver", s.driver.Name(),
		"params", len(rendered.Params), "rows", len(rows),
		"elapsed", time.Since(start))
	if err != nil {
		return fmt.Errorf("executing %q: %w", id, err)
	}
	return decodeRows(id, rows, dest)
}

// Exec renders the statement id with args bound and runs it as a
// statement. Inserts marked useGeneratedKeys return the generated key;
// everything else returns the affected-row count.
func (s *Session) Exec(ctx context.Context, id string, args any) (int64, error) {
	stmt, rendered, err := s.render(id, args)
	if err != nil {
		return 0, err
	}

	if stmt.Kind == registry.KindInsert && stmt.UseGeneratedKeys {
		return s.execGeneratedKey(ctx, stmt, rendered.SQL, exportParams(rendered.Params))
	}

	conn, release, err := s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	start := time.Now()
	affected, err := conn.Exec(ctx, rendered.SQL, exportParams(rendered.Params))
	s.manager.logger.DebugContext(ctx, "exec",
		"statement", stmt.FQID(), "driver", s.driver.Name(),
		"params", len(rendered.Params), "affected", affected,
		"elapsed", time.Since(start))
	if err != nil {
		return 0, fmt.Errorf("executing %q: %w", id, err)
	}
	return affected, nil
}

// execGeneratedKey runs an insert and reads the generated key from the same
// connection. Outside a transaction the pair is wrapped in an implicit one,
// since a pooled connection checked out twice could hand the key query to a
// different physical connection.
func (s *Session) execGeneratedKey(ctx context.Context, stmt *registry.Statement, sql string, params []Param) (int64, error) {
	inTx := s.tx != nil && s.tx.active()
	if !inTx {
		if err := s.Begin(ctx); err != nil {
			return 0, err
		}
	}

	key, err := s.insertAndFetchKey(ctx, stmt, sql, params)

	if !inTx {
		if err != nil {
			s.Rollback(context.WithoutCancel(ctx))
			return 0, err
		}
		if cerr := s.Commit(ctx); cerr != nil {
			return 0, cerr
		}
		return key, nil
	}
	return key, err
}

func (s *Session) insertAndFetchKey(ctx context.Context, stmt *registry.Statement, sql string, params []Param) (int64, error) {
	conn := s.tx.conn

	start := time.Now()
	if _, err := conn.Exec(ctx, sql, params); err != nil {
		return 0, fmt.Errorf("executing %q: %w", stmt.FQID(), err)
	}
	key, err := conn.LastInsertID(ctx)
	s.manager.logger.DebugContext(ctx, "insert",
		"statement", stmt.FQID(), "driver", s.driver.Name(),
		"key", key, "elapsed", time.Since(start))
	if err != nil {
		return 0, fmt.Errorf("fetching generated key for %q: %w", stmt.FQID(), err)
	}
	return key, nil
}

// Execute runs the statement id and returns a typed result. Selects decode
// rows into R with Select's shape fallbacks; other kinds return Exec's
// count or generated key converted to R.
func Execute[R any](ctx context.Context, s *Session, id string, args any) (R, error) {
	var result R

	stmt, ok := s.manager.store.Find(id, s.driver.Type())
	if !ok {
		return result, fmt.Errorf("%w: %q", ErrStatementNotFound, id)
	}
	if stmt.Kind == registry.KindSelect {
		err := s.Select(ctx, id, args, &result)
		return result, err
	}

	n, err := s.Exec(ctx, id, args)
	if err != nil {
		return result, err
	}
	if err := value.Decode(value.Int64Value(n), &result); err != nil {
		return result, fmt.Errorf("converting result of %q: %w", id, err)
	}
	return result, nil
}

// decodeRows converts a row list into dest. The row list decodes directly
// into slice-shaped destinations; a single row additionally tries row and
// single-column scalar shapes before giving up.
func decodeRows(id string, rows []map[string]any, dest any) error {
	list := value.ToValue(rows)

	listErr := value.Decode(list, dest)
	if listErr == nil {
		return nil
	}

	if len(rows) == 1 {
		row := list.Items()[0]
		if err := value.Decode(row, dest); err == nil {
			return nil
		}
		if keys := row.Keys(); len(keys) == 1 {
			col, _ := row.Index(keys[0])
			if err := value.Decode(col, dest); err == nil {
				return nil
			}
		}
	}

	if len(rows) == 0 && !isSlice(dest) {
		return fmt.Errorf("%w for %q", ErrNoRows, id)
	}
	return fmt.Errorf("decoding result of %q: %w", id, listErr)
}

func isSlice(dest any) bool {
	rv := reflect.ValueOf(dest)
	return rv.Kind() == reflect.Pointer && rv.Elem().Kind() == reflect.Slice
}
