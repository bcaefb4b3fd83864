package loader

import (
	"context"
	"fmt"
	"sync"

	"github.com/conneroisu/minipack/internal/errors"
	"github.com/conneroisu/minipack/internal/logging"
)

// Request describes one chain execution for a unit.
type Request struct {
	Resource  string
	Content   []byte
	SourceMap SourceMap
	Meta      Meta
	Stages    []Stage
	// EmitFile receives files emitted by stages. Nil disables emitting.
	EmitFile EmitFunc
}

// Result is the outcome of a chain execution.
type Result struct {
	Payload
	// PitchedAt is the index of the stage whose pitch short-circuited the
	// chain, or -1.
	PitchedAt int
}

// ShortCircuited reports whether a pitch function ended the chain.
func (r *Result) ShortCircuited() bool {
	return r.PitchedAt >= 0
}

// Runner executes transform chains.
type Runner struct {
	logger logging.Logger
}

// NewRunner creates a chain runner.
func NewRunner(logger logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Runner{logger: logger.WithComponent("loader")}
}

// run carries the per-execution state of one chain.
type run struct {
	mu        sync.Mutex
	violation error
	logger    logging.Logger
}

func (r *run) report(err error) {
	r.mu.Lock()
	if r.violation == nil {
		r.violation = err
	}
	r.mu.Unlock()
	r.logger.Warn(context.Background(), err, "Transform protocol violated")
}

func (r *run) failed() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.violation
}

// Run executes the chain of req. An empty chain returns the input unchanged.
// A pitch short-circuit ends the chain with the pitched payload; no normal
// function runs.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	logger := r.logger.With("resource", req.Resource)
	state := &run{logger: logger}

	names := make([]string, len(req.Stages))
	for i, stage := range req.Stages {
		if stage.Loader == nil || stage.Loader.Normal == nil {
			return nil, errors.NewConfigError(req.Resource, fmt.Sprintf("stage %d has no loader", i))
		}
		names[i] = stage.Name()
	}

	contexts := make([]*Context, len(req.Stages))
	for i, stage := range req.Stages {
		contexts[i] = &Context{
			Resource: req.Resource,
			Index:    i,
			Loaders:  names,
			Data:     make(map[string]any),
			ctx:      ctx,
			stage:    stage,
			emit:     req.EmitFile,
			logger:   logger.With("loader", stage.Name(), "stage", i),
		}
	}

	input := Payload{Content: req.Content, SourceMap: req.SourceMap, Meta: req.Meta}

	for i, stage := range req.Stages {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewTransformError(i, stage.Name(), err)
		}
		if stage.Loader.Pitch == nil {
			continue
		}

		out, err := r.pitch(state, contexts[i], stage)
		if err != nil {
			return nil, err
		}
		if out != nil {
			if len(out.Content) == 0 {
				logger.Warn(ctx, nil, "Pitch returned empty content, treating as short-circuit", "loader", stage.Name(), "stage", i)
			}
			logger.Debug(ctx, "Pitch short-circuited chain", "loader", stage.Name(), "stage", i)
			return &Result{Payload: *out, PitchedAt: i}, nil
		}
	}

	for i := len(req.Stages) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewTransformError(i, req.Stages[i].Name(), err)
		}

		out, err := r.normal(ctx, state, contexts[i], req.Stages[i], input)
		if err != nil {
			return nil, err
		}
		input = out
	}

	if err := state.failed(); err != nil {
		return nil, err
	}
	return &Result{Payload: input, PitchedAt: -1}, nil
}

func (r *Runner) pitch(state *run, lc *Context, stage Stage) (*Payload, error) {
	c := newCompletion(stage.Name(), state.report)
	lc.reset(c)

	out, err := recovered(func() (*Payload, error) {
		return stage.Loader.Pitch(lc, lc.RemainingRequest(), lc.PrecedingRequest())
	})
	if err != nil {
		return nil, errors.NewTransformError(lc.Index, stage.Name(), err)
	}
	if c.used() {
		return nil, errors.NewProtocolViolation(stage.Name(), "pitch functions must complete synchronously")
	}
	return out, nil
}

// recovered runs a stage function and reports a panic as an error.
func recovered(fn func() (*Payload, error)) (out *Payload, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("loader panicked: %v", r)
		}
	}()
	return fn()
}

func (r *Runner) normal(ctx context.Context, state *run, lc *Context, stage Stage, in Payload) (Payload, error) {
	c := newCompletion(stage.Name(), state.report)
	lc.reset(c)

	if !stage.Loader.Raw {
		in.Content = decodeText(in.Content)
	}

	lc.logger.Debug(ctx, "Running stage")
	out, err := recovered(func() (*Payload, error) {
		return stage.Loader.Normal(lc, in)
	})
	if err != nil {
		return Payload{}, errors.NewTransformError(lc.Index, stage.Name(), err)
	}

	if out != nil {
		if c.used() {
			return Payload{}, errors.NewProtocolViolation(stage.Name(), "stage returned a result and used the completion callback")
		}
		return *out, nil
	}

	if !c.used() {
		return Payload{}, errors.NewProtocolViolation(stage.Name(), "stage returned no result")
	}

	var result outcome
	select {
	case result = <-c.result:
	case <-ctx.Done():
		return Payload{}, errors.NewTransformError(lc.Index, stage.Name(), ctx.Err())
	}

	if err := state.failed(); err != nil {
		return Payload{}, err
	}
	if result.err != nil {
		return Payload{}, errors.NewTransformError(lc.Index, stage.Name(), result.err)
	}
	if result.out == nil {
		return Payload{}, nil
	}
	return *result.out, nil
}
