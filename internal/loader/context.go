package loader

import (
	"context"
	"path"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/conneroisu/minipack/internal/errors"
	"github.com/conneroisu/minipack/internal/logging"
)

// Callback completes an asynchronous normal function. It must be invoked
// exactly once; later invocations return a protocol violation.
type Callback func(err error, out *Payload) error

// EmitFunc records an extra output file produced by a stage.
type EmitFunc func(name string, content []byte) error

type outcome struct {
	err error
	out *Payload
}

// completion is the single-use handle behind Async and Callback.
type completion struct {
	subject string
	calls   atomic.Int32
	async   atomic.Bool
	result  chan outcome
	report  func(error)
}

func newCompletion(subject string, report func(error)) *completion {
	return &completion{
		subject: subject,
		result:  make(chan outcome, 1),
		report:  report,
	}
}

func (c *completion) complete(err error, out *Payload) error {
	if c.calls.Add(1) > 1 {
		violation := errors.NewProtocolViolation(c.subject, "completion callback invoked more than once")
		if c.report != nil {
			c.report(violation)
		}
		return violation
	}
	c.result <- outcome{err: err, out: out}
	return nil
}

func (c *completion) used() bool {
	return c.async.Load() || c.calls.Load() > 0
}

// Context is handed to every pitch and normal function of a stage. The same
// Context is used for the pitch and normal phase of a stage, so Data set while
// pitching is visible to the normal function.
type Context struct {
	// Resource is the identifier of the unit being transformed.
	Resource string
	// Index is the position of the stage in the chain.
	Index int
	// Loaders lists the loader names of the whole chain.
	Loaders []string
	// Data is scratch space shared between the pitch and normal phase.
	Data map[string]any

	ctx        context.Context
	stage      Stage
	emit       EmitFunc
	logger     logging.Logger
	mu         sync.Mutex
	completion *completion
}

// Ctx returns the context of the running chain.
func (lc *Context) Ctx() context.Context {
	return lc.ctx
}

// Options returns the validated stage options.
func (lc *Context) Options() map[string]any {
	return lc.stage.Options
}

// DecodeOptions decodes the stage options into target.
func (lc *Context) DecodeOptions(target any) error {
	return DecodeOptions(lc.stage.Options, target)
}

// Logger returns a logger scoped to the stage.
func (lc *Context) Logger() logging.Logger {
	return lc.logger
}

// Dir returns the directory of the resource.
func (lc *Context) Dir() string {
	return path.Dir(CleanResource(lc.Resource))
}

// Async marks the normal function as asynchronous and returns its completion
// callback. Calling Async more than once returns the same callback.
func (lc *Context) Async() Callback {
	c := lc.current()
	c.async.Store(true)
	return c.complete
}

// Callback returns the completion callback without marking the stage
// asynchronous. Invoking it before the normal function returns completes the
// stage.
func (lc *Context) Callback() Callback {
	return lc.current().complete
}

// EmitFile records an extra output file.
func (lc *Context) EmitFile(name string, content []byte) error {
	if lc.emit == nil {
		return errors.NewInvalidState(lc.stage.Name(), "emitting files is not supported in this chain")
	}
	return lc.emit(name, content)
}

// CurrentRequest returns the descriptor from this stage to the resource.
func (lc *Context) CurrentRequest() string {
	return joinRequest(lc.Loaders[lc.Index:], lc.Resource)
}

// RemainingRequest returns the descriptor after this stage.
func (lc *Context) RemainingRequest() string {
	return joinRequest(lc.Loaders[lc.Index+1:], lc.Resource)
}

// PrecedingRequest returns the descriptor of the stages before this one.
func (lc *Context) PrecedingRequest() string {
	return strings.Join(lc.Loaders[:lc.Index], "!")
}

func (lc *Context) current() *completion {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.completion
}

func (lc *Context) reset(c *completion) {
	lc.mu.Lock()
	lc.completion = c
	lc.mu.Unlock()
}

func joinRequest(loaders []string, resource string) string {
	parts := make([]string, 0, len(loaders)+1)
	parts = append(parts, loaders...)
	parts = append(parts, resource)
	return strings.Join(parts, "!")
}
