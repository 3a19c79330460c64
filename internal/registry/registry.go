// Package registry loads namespaced XML mapper definitions into a statement
// store and resolves statement ids to per-database-type SQL variants.
package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dynsql/dynsql/internal/template"
)

// Kind classifies a statement by the XML element that defined it; the
// execution layer dispatches on it to shape the result.
type Kind int

const (
	KindRaw Kind = iota // <sql>
	KindSelect
	KindInsert
	KindUpdate
	KindDelete
)

var kindNames = map[Kind]string{
	KindRaw:    "sql",
	KindSelect: "select",
	KindInsert: "insert",
	KindUpdate: "update",
	KindDelete: "delete",
}

func (k Kind) String() string { return kindNames[k] }

// Statement is one resolved SQL definition. Statements are immutable after
// load and live in the store for the process lifetime.
type Statement struct {
	Namespace string
	ID        string
	Kind      Kind
	// DatabaseType discriminates engine-specific variants; empty means the
	// default variant used when no exact match exists.
	DatabaseType string
	// SQL is the raw template body, inner markup preserved.
	SQL string
	// UseGeneratedKeys marks an insert whose result is the database-assigned
	// key rather than the affected-row count.
	UseGeneratedKeys bool
	// KeyColumn optionally names the generated key column.
	KeyColumn string
}

// FQID returns the fully-qualified statement id.
func (s *Statement) FQID() string {
	return s.Namespace + "." + s.ID
}

// CacheKey returns the template cache key for this statement. Variants with
// a database type get their own key so they never share a cached AST with
// the untyped fallback.
func (s *Statement) CacheKey() string {
	if s.DatabaseType == "" {
		return s.FQID()
	}
	return s.FQID() + "@" + s.DatabaseType
}

// Store holds loaded statements indexed by namespace and id. It is safe for
// concurrent loads and lookups.
type Store struct {
	mutex sync.RWMutex
	// namespaces maps namespace -> id -> variants. At most one variant per
	// database type, at most one with an empty type acting as fallback.
	namespaces map[string]map[string][]*Statement
}

// NewStore returns an empty statement store.
func NewStore() *Store {
	return &Store{namespaces: make(map[string]map[string][]*Statement)}
}

// register adds a batch of statements from one mapper unit. The batch is
// validated in full before anything is inserted, so a duplicate rejects the
// whole unit and leaves the store untouched.
func (s *Store) register(namespace string, stmts []*Statement, source string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		ns = make(map[string][]*Statement)
	}

	for i, stmt := range stmts {
		for _, existing := range ns[stmt.ID] {
			if existing.DatabaseType == stmt.DatabaseType {
				return dupErr(stmt, source)
			}
		}
		for _, prior := range stmts[:i] {
			if prior.ID == stmt.ID && prior.DatabaseType == stmt.DatabaseType {
				return dupErr(stmt, source)
			}
		}
	}

	for _, stmt := range stmts {
		ns[stmt.ID] = append(ns[stmt.ID], stmt)
	}
	s.namespaces[namespace] = ns

	// Pre-warm the template cache so first render never parses.
	for _, stmt := range stmts {
		template.Cached(stmt.CacheKey(), stmt.SQL)
	}
	return nil
}

func dupErr(stmt *Statement, source string) error {
	if stmt.DatabaseType == "" {
		return fmt.Errorf("%s: duplicate statement %q in namespace %q", source, stmt.ID, stmt.Namespace)
	}
	return fmt.Errorf("%s: duplicate statement %q in namespace %q for database type %q",
		source, stmt.ID, stmt.Namespace, stmt.DatabaseType)
}

// Find splits id on its last dot into namespace and local id and returns the
// variant matching databaseType, falling back to the untyped variant, else
// nil.
func (s *Store) Find(id, databaseType string) (*Statement, bool) {
	dot := strings.LastIndexByte(id, '.')
	if dot < 0 {
		return nil, false
	}
	namespace, local := id[:dot], id[dot+1:]

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		return nil, false
	}

	var fallback *Statement
	for _, stmt := range ns[local] {
		switch stmt.DatabaseType {
		case databaseType:
			return stmt, true
		case "":
			fallback = stmt
		}
	}
	if fallback != nil {
		return fallback, true
	}
	return nil, false
}

// Clear empties the store and the template cache. Intended for test resets.
func (s *Store) Clear() {
	s.mutex.Lock()
	s.namespaces = make(map[string]map[string][]*Statement)
	s.mutex.Unlock()
	template.Clear()
}
