// Package registry implements the module cache used to resolve and memoize
// module execution.
//
// A module is an identifier bound to a body function. The first Require of an
// identifier allocates an empty Exports container, caches it and only then runs
// the body, so a circular Require made while the body is still executing gets
// the partially filled container instead of recursing. Every later Require
// returns the cached container without running the body again.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/conneroisu/minipack/internal/errors"
	"github.com/conneroisu/minipack/internal/logging"
)

// RequireFunc resolves another module from inside a module body.
type RequireFunc func(id string) (*Exports, error)

// Body fills exports for a module. It may call require for its dependencies.
type Body func(module *Module, exports *Exports, require RequireFunc) error

// Module is the cache record of one executed (or executing) module.
type Module struct {
	ID      string
	Exports *Exports
	// Loaded is set once the body has returned.
	Loaded bool
	err    error
}

// Modules maps identifiers to module bodies and caches their exports.
type Modules struct {
	bodies map[string]Body
	cache  map[string]*Module
	mutex  sync.Mutex
	logger logging.Logger
}

// Option configures a Modules registry.
type Option func(*Modules)

// WithLogger sets the logger used for execution diagnostics.
func WithLogger(logger logging.Logger) Option {
	return func(m *Modules) {
		m.logger = logger.WithComponent("registry")
	}
}

// New creates an empty module registry.
func New(opts ...Option) *Modules {
	m := &Modules{
		bodies: make(map[string]Body),
		cache:  make(map[string]*Module),
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Define registers the body for id. Redefining an id is rejected.
func (m *Modules) Define(id string, body Body) error {
	if id == "" {
		return errors.NewConfigError("module", "empty module id")
	}
	if body == nil {
		return errors.NewConfigError(id, "nil module body")
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.bodies[id]; exists {
		return errors.NewInvalidState(id, "module already defined")
	}
	m.bodies[id] = body
	return nil
}

// Require returns the exports of id, executing its body on first use.
//
// A body that failed or panicked is not re-run: the same error is returned on
// every call.
func (m *Modules) Require(id string) (*Exports, error) {
	m.mutex.Lock()
	if cached, ok := m.cache[id]; ok {
		err := cached.err
		m.mutex.Unlock()
		if err != nil {
			return nil, err
		}
		return cached.Exports, nil
	}

	body, ok := m.bodies[id]
	if !ok {
		m.mutex.Unlock()
		return nil, errors.NewModuleNotFound(id)
	}

	module := &Module{ID: id, Exports: NewExports()}
	m.cache[id] = module
	m.mutex.Unlock()

	m.logger.Debug(context.Background(), "Executing module", "id", id)
	err := m.run(body, module)

	m.mutex.Lock()
	module.Loaded = true
	if err != nil {
		module.err = fmt.Errorf("module %s: %w", id, err)
	}
	m.mutex.Unlock()

	if module.err != nil {
		m.logger.Error(context.Background(), err, "Module body failed", "id", id)
		return nil, module.err
	}
	return module.Exports, nil
}

// run executes body, reporting a panic as the body's error.
func (m *Modules) run(body Body, module *Module) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("body panicked: %v", r)
		}
	}()
	return body(module, module.Exports, m.Require)
}

// Has reports whether a body is registered for id.
func (m *Modules) Has(id string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	_, ok := m.bodies[id]
	return ok
}

// Executed reports whether id has been required at least once.
func (m *Modules) Executed(id string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	_, ok := m.cache[id]
	return ok
}

// IDs returns the registered identifiers in sorted order.
func (m *Modules) IDs() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	ids := make([]string, 0, len(m.bodies))
	for id := range m.bodies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of registered modules
func (m *Modules) Count() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return len(m.bodies)
}

// Reset drops every cached execution. Bodies stay registered, so the next
// Require of an id runs its body again.
func (m *Modules) Reset() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.cache = make(map[string]*Module)
}

// Export requires id and returns its export name asserted to T.
func Export[T any](m *Modules, id, name string) (T, error) {
	var zero T

	exports, err := m.Require(id)
	if err != nil {
		return zero, err
	}

	value, ok := exports.Get(name)
	if !ok {
		return zero, errors.NewConfigError(id, fmt.Sprintf("module has no export %q", name))
	}

	typed, ok := value.(T)
	if !ok {
		return zero, errors.NewConfigError(id, fmt.Sprintf("export %q has type %T, want %T", name, value, zero))
	}
	return typed, nil
}
