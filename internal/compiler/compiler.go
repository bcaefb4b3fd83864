// Package compiler drives a build run through its lifecycle stages.
//
// A run fires the setup, build and finalize hooks exactly once and in that
// order. During the build stage every discovered unit goes through its
// transform chain and the result is recorded in the Compilation under a
// deterministic asset name. Finalize listeners may still rewrite assets;
// afterwards the asset map is frozen and returned as the Result.
package compiler

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/minipack/internal/config"
	"github.com/conneroisu/minipack/internal/errors"
	"github.com/conneroisu/minipack/internal/hooks"
	"github.com/conneroisu/minipack/internal/loader"
	"github.com/conneroisu/minipack/internal/logging"
	"github.com/conneroisu/minipack/internal/registry"
)

// Lifecycle stage names.
const (
	StageSetup    = "setup"
	StageBuild    = "build"
	StageFinalize = "finalize"

	HookShouldEmit = "shouldEmit"
	HookBeforeEmit = "beforeEmit"
)

// Hooks are the well-known lifecycle hooks of a compiler.
type Hooks struct {
	Setup    *hooks.Hook[*Compilation]
	Build    *hooks.Hook[*Compilation]
	Finalize *hooks.Hook[*Compilation]
	// ShouldEmit is consulted by Emit; a listener returning hooks.ErrBail
	// skips writing.
	ShouldEmit *hooks.Hook[*Result]
	// BeforeEmit fires once Emit has decided to write, before any file is
	// written.
	BeforeEmit *hooks.Hook[*Result]
}

type rule struct {
	pattern  *regexp.Regexp
	stages   []loader.Stage
	filename string
}

// Compiler owns the hooks and module registry of a build and runs it.
type Compiler struct {
	config   *config.Config
	modules  *registry.Modules
	registry *hooks.Registry
	hooks    Hooks
	runner   *loader.Runner
	source   UnitSource
	inputFS  afero.Fs
	outputFS afero.Fs
	metrics  *BuildMetrics
	logger   logging.Logger

	disciplines map[string]hooks.Discipline
	extra       []Plugin
	plugins     []Plugin
	rules       []rule

	running atomic.Bool
	mutex   sync.RWMutex
	phase   Phase
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithModules sets the module registry loaders and plugins resolve from.
func WithModules(modules *registry.Modules) Option {
	return func(c *Compiler) { c.modules = modules }
}

// WithLogger sets the compiler logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Compiler) { c.logger = logger }
}

// WithInputFS sets the filesystem entry patterns are matched on.
func WithInputFS(fs afero.Fs) Option {
	return func(c *Compiler) { c.inputFS = fs }
}

// WithOutputFS sets the filesystem Emit writes to.
func WithOutputFS(fs afero.Fs) Option {
	return func(c *Compiler) { c.outputFS = fs }
}

// WithUnitSource replaces entry pattern discovery.
func WithUnitSource(source UnitSource) Option {
	return func(c *Compiler) { c.source = source }
}

// WithStageDiscipline overrides the discipline of a lifecycle stage hook.
func WithStageDiscipline(stage string, discipline hooks.Discipline) Option {
	return func(c *Compiler) { c.disciplines[stage] = discipline }
}

// WithMetrics sets the metrics the compiler records into.
func WithMetrics(metrics *BuildMetrics) Option {
	return func(c *Compiler) { c.metrics = metrics }
}

// WithPlugins applies plugins in addition to the configured ones.
func WithPlugins(plugins ...Plugin) Option {
	return func(c *Compiler) { c.extra = append(c.extra, plugins...) }
}

// New creates a compiler, filling unset configuration fields with defaults,
// validating the result, resolving every configured loader and applying every
// plugin before any run starts.
func New(cfg *config.Config, opts ...Option) (*Compiler, error) {
	if cfg == nil {
		return nil, errors.NewConfigError("config", "nil configuration")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Compiler{
		config: cfg,
		logger: logging.Nop(),
		disciplines: map[string]hooks.Discipline{
			StageSetup:    hooks.Sync,
			StageBuild:    hooks.AsyncParallel,
			StageFinalize: hooks.AsyncSeries,
		},
		phase: PhaseIdle,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.WithComponent("compiler")
	if c.modules == nil {
		c.modules = registry.New(registry.WithLogger(c.logger))
	}
	if c.inputFS == nil {
		c.inputFS = afero.NewOsFs()
	}
	if c.outputFS == nil {
		c.outputFS = afero.NewOsFs()
	}
	if c.source == nil {
		c.source = FSSource{Fs: c.inputFS, Root: cfg.Context, Patterns: cfg.Entry}
	}
	if c.metrics == nil {
		c.metrics = NewBuildMetrics()
	}
	c.runner = loader.NewRunner(c.logger)

	if err := c.defineHooks(); err != nil {
		return nil, err
	}
	if err := c.compileRules(); err != nil {
		return nil, err
	}
	if err := c.applyPlugins(); err != nil {
		return nil, err
	}

	c.logger.Debug(context.Background(), "Compiler ready",
		"rules", len(c.rules), "plugins", len(c.plugins))
	return c, nil
}

func (c *Compiler) defineHooks() error {
	c.registry = hooks.NewRegistry(c.logger)

	var err error
	if c.hooks.Setup, err = hooks.Define[*Compilation](c.registry, StageSetup, c.disciplines[StageSetup]); err != nil {
		return err
	}
	if c.hooks.Build, err = hooks.Define[*Compilation](c.registry, StageBuild, c.disciplines[StageBuild]); err != nil {
		return err
	}
	if c.hooks.Finalize, err = hooks.Define[*Compilation](c.registry, StageFinalize, c.disciplines[StageFinalize]); err != nil {
		return err
	}
	if c.hooks.ShouldEmit, err = hooks.Define[*Result](c.registry, HookShouldEmit, hooks.Sync); err != nil {
		return err
	}
	if c.hooks.BeforeEmit, err = hooks.Define[*Result](c.registry, HookBeforeEmit, hooks.Sync); err != nil {
		return err
	}
	return nil
}

func (c *Compiler) compileRules() error {
	for i, rc := range c.config.Rules {
		pattern, err := rc.Pattern()
		if err != nil {
			return err
		}

		r := rule{pattern: pattern, filename: rc.Filename}
		for j, use := range rc.Use {
			l, err := registry.Export[*loader.Loader](c.modules, use.Loader, registry.DefaultExport)
			if err != nil {
				return fmt.Errorf("rules[%d].use[%d]: %w", i, j, err)
			}
			stage, err := loader.NewStage(l, use.Options)
			if err != nil {
				return fmt.Errorf("rules[%d].use[%d]: %w", i, j, err)
			}
			r.stages = append(r.stages, stage)
		}
		c.rules = append(c.rules, r)
	}
	return nil
}

// Config returns the compiler configuration.
func (c *Compiler) Config() *config.Config { return c.config }

// Hooks returns the lifecycle hooks.
func (c *Compiler) Hooks() *Hooks { return &c.hooks }

// HookRegistry returns the registry of named hooks, including custom ones.
func (c *Compiler) HookRegistry() *hooks.Registry { return c.registry }

// Modules returns the module registry.
func (c *Compiler) Modules() *registry.Modules { return c.modules }

// OutputFS returns the filesystem Emit writes to.
func (c *Compiler) OutputFS() afero.Fs { return c.outputFS }

// Metrics returns the build metrics.
func (c *Compiler) Metrics() *BuildMetrics { return c.metrics }

// Logger returns the compiler logger.
func (c *Compiler) Logger() logging.Logger { return c.logger }

// Plugins returns the applied plugins in application order.
func (c *Compiler) Plugins() []Plugin {
	plugins := make([]Plugin, len(c.plugins))
	copy(plugins, c.plugins)
	return plugins
}

// Phase returns the phase of the current or last run.
func (c *Compiler) Phase() Phase {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.phase
}

func (c *Compiler) enter(comp *Compilation, p Phase) {
	comp.setPhase(p)
	c.mutex.Lock()
	c.phase = p
	c.mutex.Unlock()
	c.logger.Debug(context.Background(), "Entered phase", "phase", p.String())
}

// Run performs one build. Each run starts from an empty Compilation and
// reuses the module registry. A failed run returns a *RunError.
func (c *Compiler) Run(ctx context.Context) (*Result, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, errors.NewInvalidState("compiler", "a run is already in progress")
	}
	defer c.running.Store(false)

	perf := logging.StartOperation(c.logger, "run")
	comp := newCompilation(ctx, c)

	stages := []struct {
		name  string
		phase Phase
		hook  *hooks.Hook[*Compilation]
		after func(context.Context, *Compilation) error
	}{
		{name: StageSetup, phase: PhaseSetup, hook: c.hooks.Setup},
		{name: StageBuild, phase: PhaseBuilding, hook: c.hooks.Build, after: c.transformUnits},
		{name: StageFinalize, phase: PhaseFinalizing, hook: c.hooks.Finalize},
	}

	for _, stage := range stages {
		c.enter(comp, stage.phase)

		var err error
		if stage.phase == PhaseBuilding {
			err = c.discover(ctx, comp)
		}
		if err == nil {
			err = stage.hook.Call(ctx, comp)
		}
		if err == nil && stage.after != nil {
			err = stage.after(ctx, comp)
		}

		if err != nil {
			c.enter(comp, PhaseFailed)
			duration := perf.EndWithError(ctx, err)
			c.metrics.RecordRun(duration, err)
			return nil, &RunError{Stage: stage.name, Cause: err}
		}
	}

	c.enter(comp, PhaseDone)
	result := comp.freeze()
	result.Duration = perf.End(ctx, "assets", result.Len())
	c.metrics.RecordRun(result.Duration, nil)

	return result, nil
}

func (c *Compiler) discover(ctx context.Context, comp *Compilation) error {
	units, err := c.source.Units(ctx)
	if err != nil {
		return err
	}
	for _, unit := range units {
		if err := comp.AddUnit(unit); err != nil {
			return err
		}
	}
	c.logger.Debug(ctx, "Discovered units", "count", len(units))
	return nil
}

// transformUnits runs every unit chain with bounded parallelism. A failing
// unit does not stop its siblings; all failures are joined.
func (c *Compiler) transformUnits(ctx context.Context, comp *Compilation) error {
	units := comp.startTransforming()

	var (
		g      errgroup.Group
		mutex  sync.Mutex
		failed []error
	)
	g.SetLimit(c.config.Parallelism)

	for _, unit := range units {
		unit := unit
		g.Go(func() error {
			err := c.transform(ctx, comp, unit)
			c.metrics.RecordUnit(err)
			if err != nil {
				c.logger.Warn(ctx, err, "Unit failed", "unit", unit.ID)
				mutex.Lock()
				failed = append(failed, fmt.Errorf("unit %s: %w", unit.ID, err))
				mutex.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return stderrors.Join(failed...)
}

func (c *Compiler) transform(ctx context.Context, comp *Compilation, unit Unit) error {
	stages, template := c.chainFor(unit.ID)

	result, err := c.runner.Run(ctx, loader.Request{
		Resource: unit.ID,
		Content:  unit.Content,
		Stages:   stages,
		EmitFile: comp.emitFile,
	})
	if err != nil {
		return err
	}

	name := loader.InterpolateName(template, unit.ID, result.Content)
	return comp.recordOutput(unit.ID, name, RawAsset(result.Content))
}

// chainFor concatenates the stages of every matching rule in rule order. The
// first matching rule with a filename override decides the output name.
func (c *Compiler) chainFor(id string) ([]loader.Stage, string) {
	var stages []loader.Stage
	template := ""

	for _, r := range c.rules {
		if !r.pattern.MatchString(id) {
			continue
		}
		stages = append(stages, r.stages...)
		if template == "" && r.filename != "" {
			template = r.filename
		}
	}

	if template == "" {
		template = c.config.Output.Filename
	}
	return stages, template
}
