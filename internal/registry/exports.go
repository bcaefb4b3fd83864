package registry

import (
	"sort"
	"sync"
)

// DefaultExport is the export name used for a module's default value.
const DefaultExport = "default"

// Exports is the container a module body fills. Each name maps to an accessor
// evaluated on every read, which keeps re-exports of a circular dependency
// live instead of capturing a value that has not been assigned yet.
type Exports struct {
	getters  map[string]func() any
	esModule bool
	mutex    sync.RWMutex
}

// NewExports creates an empty exports container.
func NewExports() *Exports {
	return &Exports{getters: make(map[string]func() any)}
}

// Define binds each accessor in definition whose name is not yet exported.
// Names that are already bound keep their first accessor.
func (e *Exports) Define(definition map[string]func() any) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	for name, getter := range definition {
		if _, exists := e.getters[name]; exists || getter == nil {
			continue
		}
		e.getters[name] = getter
	}
}

// Set assigns a plain value to name, replacing any accessor.
func (e *Exports) Set(name string, value any) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.getters[name] = func() any { return value }
}

// Get evaluates the accessor bound to name.
func (e *Exports) Get(name string) (any, bool) {
	e.mutex.RLock()
	getter, ok := e.getters[name]
	e.mutex.RUnlock()

	if !ok {
		return nil, false
	}
	return getter(), true
}

// Default returns the default export.
func (e *Exports) Default() (any, bool) {
	return e.Get(DefaultExport)
}

// Names returns the exported names in sorted order.
func (e *Exports) Names() []string {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	names := make([]string, 0, len(e.getters))
	for name := range e.getters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarkESModule flags the container as a namespace object.
func (e *Exports) MarkESModule() {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.esModule = true
}

// IsESModule reports whether MarkESModule was called.
func (e *Exports) IsESModule() bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return e.esModule
}
