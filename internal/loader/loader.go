// Package loader runs the per-unit transform chain.
//
// A chain is an ordered list of stages, each backed by a Loader. Running a
// chain is a two-phase protocol: pitch functions run left to right and may
// short-circuit the whole chain. Without a short-circuit, normal functions
// then run right to left, each one receiving the previous stage's output. A normal function completes either by
// returning a payload or, after calling Context.Async, by invoking the
// completion callback exactly once.
package loader

import (
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/conneroisu/minipack/internal/errors"
)

// Meta is opaque metadata carried from stage to stage.
type Meta map[string]any

// SourceMap is an opaque serialized source map carried from stage to stage.
type SourceMap []byte

// Payload is the content triple handed between normal functions.
type Payload struct {
	Content   []byte
	SourceMap SourceMap
	Meta      Meta
}

// String returns the content as text.
func (p Payload) String() string {
	return string(p.Content)
}

// With returns a copy of p carrying new content and the same map and meta.
func (p Payload) With(content []byte) *Payload {
	return &Payload{Content: content, SourceMap: p.SourceMap, Meta: p.Meta}
}

// Text builds a payload from a string.
func Text(s string) *Payload {
	return &Payload{Content: []byte(s)}
}

// NormalFunc is the main transform of a stage. Returning a nil payload is only
// valid after Async or Callback was used.
type NormalFunc func(lc *Context, in Payload) (*Payload, error)

// PitchFunc runs before any normal function. remaining and preceding are the
// "!"-joined request descriptors after and before the stage. A non-nil payload
// short-circuits the chain.
type PitchFunc func(lc *Context, remaining, preceding string) (*Payload, error)

// Loader defines one transform.
type Loader struct {
	Name   string
	Normal NormalFunc
	// Pitch is optional.
	Pitch PitchFunc
	// Raw stages receive content bytes untouched; the others receive
	// content decoded to UTF-8.
	Raw bool
	// Schema validates the stage options. Nil accepts any options.
	Schema *jsonschema.Schema

	resolveOnce sync.Once
	resolved    *jsonschema.Resolved
	resolveErr  error
}

// Stage is a loader bound to validated options at one chain position.
type Stage struct {
	Loader  *Loader
	Options map[string]any
}

// Name returns the loader name of the stage.
func (s Stage) Name() string {
	if s.Loader == nil {
		return ""
	}
	return s.Loader.Name
}

// NewStage validates options against the loader schema and binds them.
func NewStage(l *Loader, options map[string]any) (Stage, error) {
	if l == nil {
		return Stage{}, errors.NewConfigError("loader", "nil loader")
	}
	if l.Name == "" {
		return Stage{}, errors.NewConfigError("loader", "loader has no name")
	}
	if l.Normal == nil {
		return Stage{}, errors.NewConfigError(l.Name, "loader has no normal function")
	}

	validated, err := ValidateOptions(l, options)
	if err != nil {
		return Stage{}, err
	}
	return Stage{Loader: l, Options: validated}, nil
}
