// Package hooks implements named extension points with a declared firing
// discipline.
//
// A Hook is created with one of three disciplines. Synchronous hooks run
// their listeners one after another and never suspend. AsyncSeries hooks wait
// for each listener to complete before starting the next. AsyncParallel hooks
// start every listener and wait for all of them, resolving with the first
// error once the slowest listener is done.
//
// Listeners are registered with Tap, TapAsync or TapPromise. Registering an
// asynchronous listener on a synchronous hook fails with a discipline
// mismatch, and registering on a hook that has already fired fails with a
// late registration error.
package hooks

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/minipack/internal/errors"
	"github.com/conneroisu/minipack/internal/logging"
)

// Discipline is the firing semantics of a hook.
type Discipline int

const (
	Sync Discipline = iota
	AsyncSeries
	AsyncParallel
)

func (d Discipline) String() string {
	switch d {
	case Sync:
		return "sync"
	case AsyncSeries:
		return "async-series"
	case AsyncParallel:
		return "async-parallel"
	default:
		return fmt.Sprintf("discipline(%d)", int(d))
	}
}

// ParseDiscipline parses the string form of a discipline.
func ParseDiscipline(s string) (Discipline, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sync", "synchronous":
		return Sync, nil
	case "async-series", "series":
		return AsyncSeries, nil
	case "async-parallel", "parallel":
		return AsyncParallel, nil
	default:
		return Sync, errors.NewConfigError("discipline", fmt.Sprintf("unknown discipline %q", s))
	}
}

// ListenerKind is the completion style of a listener.
type ListenerKind int

const (
	// KindSync listeners complete by returning.
	KindSync ListenerKind = iota
	// KindAsync listeners complete by invoking their Done handle.
	KindAsync
	// KindPromise listeners complete by sending on, or closing, the
	// returned channel.
	KindPromise
)

func (k ListenerKind) String() string {
	switch k {
	case KindSync:
		return "sync"
	case KindAsync:
		return "async"
	case KindPromise:
		return "promise"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ErrBail stops a firing early without failing it. Listeners return it (or
// pass it to Done) to skip the remaining listeners of a Sync or AsyncSeries
// hook.
var ErrBail = stderrors.New("hooks: bail")

// Done completes an asynchronous listener. It must be invoked exactly once;
// later invocations return a protocol violation.
type Done func(err error) error

type listener[T any] struct {
	name    string
	kind    ListenerKind
	sync    func(T) error
	async   func(T, Done)
	promise func(T) <-chan error
}

// Option configures a hook.
type Option func(*options)

type options struct {
	logger logging.Logger
}

// WithLogger sets the logger a hook reports to.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Hook is a named extension point whose listeners receive a T.
type Hook[T any] struct {
	name       string
	discipline Discipline
	logger     logging.Logger

	mu        sync.Mutex
	listeners []listener[T]
	fired     atomic.Bool
}

// New creates a hook.
func New[T any](name string, discipline Discipline, opts ...Option) *Hook[T] {
	o := options{logger: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Hook[T]{
		name:       name,
		discipline: discipline,
		logger:     o.logger.With("hook", name),
	}
}

// Name returns the hook name.
func (h *Hook[T]) Name() string { return h.name }

// Discipline returns the declared discipline.
func (h *Hook[T]) Discipline() Discipline { return h.discipline }

// Fired reports whether the hook has been called.
func (h *Hook[T]) Fired() bool { return h.fired.Load() }

// Len returns the number of registered listeners.
func (h *Hook[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// Listeners returns the listener names in registration order.
func (h *Hook[T]) Listeners() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, len(h.listeners))
	for i, l := range h.listeners {
		names[i] = l.name
	}
	return names
}

// Tap registers a listener that completes by returning.
func (h *Hook[T]) Tap(name string, fn func(T) error) error {
	if fn == nil {
		return errors.NewConfigError(h.name, "nil listener").WithContext("listener", name)
	}
	return h.register(listener[T]{name: name, kind: KindSync, sync: fn})
}

// TapAsync registers a listener that completes by invoking done.
func (h *Hook[T]) TapAsync(name string, fn func(arg T, done Done)) error {
	if fn == nil {
		return errors.NewConfigError(h.name, "nil listener").WithContext("listener", name)
	}
	return h.register(listener[T]{name: name, kind: KindAsync, async: fn})
}

// TapPromise registers a listener that completes through the returned
// channel. A nil channel completes immediately.
func (h *Hook[T]) TapPromise(name string, fn func(T) <-chan error) error {
	if fn == nil {
		return errors.NewConfigError(h.name, "nil listener").WithContext("listener", name)
	}
	return h.register(listener[T]{name: name, kind: KindPromise, promise: fn})
}

func (h *Hook[T]) register(l listener[T]) error {
	if h.discipline == Sync && l.kind != KindSync {
		return errors.NewDisciplineMismatch(h.name, l.name,
			fmt.Sprintf("%s listener cannot be registered on a synchronous hook", l.kind))
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.fired.Load() {
		return errors.NewLateRegistration(h.name, l.name)
	}
	h.listeners = append(h.listeners, l)

	h.logger.Debug(context.Background(), "Registered listener", "listener", l.name, "kind", l.kind.String())
	return nil
}

// Call fires the hook with arg under its discipline.
//
// ctx only bounds how long the caller waits; listeners still running when
// ctx is done are not stopped.
func (h *Hook[T]) Call(ctx context.Context, arg T) error {
	_, err := h.call(ctx, arg)
	return err
}

// CallBail fires the hook and reports whether a listener bailed.
func (h *Hook[T]) CallBail(ctx context.Context, arg T) (bool, error) {
	return h.call(ctx, arg)
}

func (h *Hook[T]) call(ctx context.Context, arg T) (bool, error) {
	h.mu.Lock()
	h.fired.Store(true)
	listeners := make([]listener[T], len(h.listeners))
	copy(listeners, h.listeners)
	h.mu.Unlock()

	h.logger.Debug(ctx, "Firing hook", "discipline", h.discipline.String(), "listeners", len(listeners))

	switch h.discipline {
	case AsyncParallel:
		return h.callParallel(ctx, arg, listeners)
	default:
		return h.callSeries(ctx, arg, listeners)
	}
}

func (h *Hook[T]) callSeries(ctx context.Context, arg T, listeners []listener[T]) (bool, error) {
	for _, l := range listeners {
		if err := ctx.Err(); err != nil {
			return false, errors.NewHookError(h.name, l.name, err)
		}

		err := h.invoke(ctx, l, arg)
		if stderrors.Is(err, ErrBail) {
			h.logger.Debug(ctx, "Listener bailed", "listener", l.name)
			return true, nil
		}
		if err != nil {
			return false, err
		}
	}
	return false, nil
}

func (h *Hook[T]) callParallel(ctx context.Context, arg T, listeners []listener[T]) (bool, error) {
	var (
		g      errgroup.Group
		bailed atomic.Bool
	)

	for _, l := range listeners {
		l := l
		g.Go(func() error {
			err := h.invoke(ctx, l, arg)
			if stderrors.Is(err, ErrBail) {
				bailed.Store(true)
				return nil
			}
			return err
		})
	}

	result := make(chan error, 1)
	go func() { result <- g.Wait() }()

	select {
	case err := <-result:
		return bailed.Load(), err
	case <-ctx.Done():
		return false, errors.NewHookError(h.name, "", ctx.Err())
	}
}

// invoke runs one listener and waits for it to complete. Errors other than
// ErrBail are wrapped as hook errors.
func (h *Hook[T]) invoke(ctx context.Context, l listener[T], arg T) error {
	var err error

	switch l.kind {
	case KindSync:
		err = h.invokeSync(l, arg)
	case KindAsync:
		err = h.invokeAsync(ctx, l, arg)
	case KindPromise:
		err = h.invokePromise(ctx, l, arg)
	}

	if err == nil || stderrors.Is(err, ErrBail) {
		return err
	}
	return errors.NewHookError(h.name, l.name, err)
}

func (h *Hook[T]) invokeSync(l listener[T], arg T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panicked: %v", r)
		}
	}()
	return l.sync(arg)
}

func (h *Hook[T]) invokeAsync(ctx context.Context, l listener[T], arg T) error {
	var (
		calls     atomic.Int32
		violation atomic.Pointer[errors.Error]
	)
	result := make(chan error, 1)

	done := func(err error) error {
		if calls.Add(1) > 1 {
			v := errors.NewProtocolViolation(h.name, "done invoked more than once").WithContext("listener", l.name)
			violation.CompareAndSwap(nil, v)
			h.logger.Warn(context.Background(), v, "Listener completed twice", "listener", l.name)
			return v
		}
		result <- err
		return nil
	}

	if err := h.guard(func() { l.async(arg, done) }); err != nil {
		return err
	}

	select {
	case err := <-result:
		if v := violation.Load(); v != nil {
			return v
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hook[T]) invokePromise(ctx context.Context, l listener[T], arg T) error {
	var ch <-chan error
	if err := h.guard(func() { ch = l.promise(arg) }); err != nil {
		return err
	}
	if ch == nil {
		return nil
	}

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hook[T]) guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panicked: %v", r)
		}
	}()
	fn()
	return nil
}
