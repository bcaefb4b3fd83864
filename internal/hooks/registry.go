package hooks

import (
	"fmt"
	"sort"
	"sync"

	"github.com/conneroisu/minipack/internal/errors"
	"github.com/conneroisu/minipack/internal/logging"
)

// Named is the type-erased view of a hook.
type Named interface {
	Name() string
	Discipline() Discipline
	Fired() bool
	Len() int
	Listeners() []string
}

// Registry holds hooks by name so collaborators can share custom hooks.
type Registry struct {
	mutex  sync.RWMutex
	hooks  map[string]Named
	logger logging.Logger
}

// NewRegistry creates an empty hook registry.
func NewRegistry(logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Registry{
		hooks:  make(map[string]Named),
		logger: logger,
	}
}

// Define returns the hook registered under name, creating it when absent. A
// hook already registered with another argument type or discipline is a
// configuration error.
func Define[T any](r *Registry, name string, discipline Discipline) (*Hook[T], error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if existing, ok := r.hooks[name]; ok {
		hook, ok := existing.(*Hook[T])
		if !ok {
			return nil, errors.NewConfigError(name, fmt.Sprintf("hook already defined with argument type %T", existing))
		}
		if hook.Discipline() != discipline {
			return nil, errors.NewConfigError(name,
				fmt.Sprintf("hook already defined as %s, not %s", hook.Discipline(), discipline))
		}
		return hook, nil
	}

	hook := New[T](name, discipline, WithLogger(r.logger))
	r.hooks[name] = hook
	return hook, nil
}

// Add registers an existing hook under its own name.
func (r *Registry) Add(hook Named) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.hooks[hook.Name()]; ok {
		return errors.NewInvalidState(hook.Name(), "hook already registered")
	}
	r.hooks[hook.Name()] = hook
	return nil
}

// Lookup returns the hook registered under name with argument type T.
func Lookup[T any](r *Registry, name string) (*Hook[T], bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	hook, ok := r.hooks[name].(*Hook[T])
	return hook, ok
}

// Get returns the type-erased hook registered under name.
func (r *Registry) Get(name string) (Named, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	hook, ok := r.hooks[name]
	return hook, ok
}

// Names returns the registered hook names in sorted order.
func (r *Registry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.hooks))
	for name := range r.hooks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
