package dynsql

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/dynsql/dynsql/internal/registry"
)

var (
	// ErrStatementNotFound is returned when a statement id does not
	// resolve, including when the resolved statement has an empty body.
	ErrStatementNotFound = errors.New("statement not found")

	// ErrDriverNotFound is returned by Manager.Session for an
	// unregistered driver name.
	ErrDriverNotFound = errors.New("driver not found")

	// ErrTxActive is returned by Session.Begin when the session already
	// holds an unresolved transaction.
	ErrTxActive = errors.New("transaction already active")

	// ErrNoRows is returned by Session.Select when a query yields no
	// rows and the destination cannot represent an empty result.
	ErrNoRows = errors.New("no rows in result set")
)

// Manager owns the statement store and the set of registered drivers.
// It is safe for concurrent use; Sessions created from it are not.
type Manager struct {
	store  *registry.Store
	logger *slog.Logger

	mutex   sync.RWMutex
	drivers map[string]Driver
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for statement timing and advisory
// transaction cleanup messages. The default is slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// New returns an empty Manager.
func New(options ...Option) *Manager {
	m := &Manager{
		store:   registry.NewStore(),
		logger:  slog.Default(),
		drivers: make(map[string]Driver),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// Register adds a driver under its own Name. Registering two drivers with
// the same name is an error, not a replacement.
func (m *Manager) Register(driver Driver) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	name := driver.Name()
	if _, ok := m.drivers[name]; ok {
		return fmt.Errorf("driver %q already registered", name)
	}
	m.drivers[name] = driver
	return nil
}

// Load parses one XML mapper unit and registers its statements. The unit
// loads atomically; on error the store is unchanged.
func (m *Manager) Load(data []byte, source string) error {
	return m.store.Load(data, source)
}

// LoadGlob loads every mapper file matching the filesystem glob pattern.
func (m *Manager) LoadGlob(pattern string) error {
	return m.store.LoadGlob(pattern)
}

// LoadFS loads mapper files from fsys matching the given glob patterns,
// defaulting to top-level and one-deep *.xml files.
func (m *Manager) LoadFS(fsys fs.FS, patterns ...string) error {
	return m.store.LoadFS(fsys, patterns...)
}

// ClearStatements empties the statement store and the template cache.
func (m *Manager) ClearStatements() {
	m.store.Clear()
}

// Session returns a new session bound to the named driver. A session
// carries at most one transaction and must not be shared across
// goroutines while one is active.
func (m *Manager) Session(name string) (*Session, error) {
	m.mutex.RLock()
	driver, ok := m.drivers[name]
	m.mutex.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDriverNotFound, name)
	}
	return &Session{manager: m, driver: driver}, nil
}

// Close closes every registered driver, returning the first error.
func (m *Manager) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	var first error
	for name, driver := range m.drivers {
		if err := driver.Close(); err != nil && first == nil {
			first = fmt.Errorf("closing driver %q: %w", name, err)
		}
	}
	m.drivers = make(map[string]Driver)
	return first
}
