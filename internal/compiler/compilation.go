package compiler

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/conneroisu/minipack/internal/config"
	"github.com/conneroisu/minipack/internal/errors"
	"github.com/conneroisu/minipack/internal/hooks"
	"github.com/conneroisu/minipack/internal/logging"
	"github.com/conneroisu/minipack/internal/registry"
)

// Phase is a state of the run state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSetup
	PhaseBuilding
	PhaseFinalizing
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSetup:
		return "setup"
	case PhaseBuilding:
		return "building"
	case PhaseFinalizing:
		return "finalizing"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Compilation is the state of one run shared with hook listeners.
type Compilation struct {
	compiler *Compiler
	ctx      context.Context

	mutex        sync.RWMutex
	phase        Phase
	assets       map[string]Asset
	units        []Unit
	unitIDs      map[string]struct{}
	outputs      map[string]string
	transforming bool
}

func newCompilation(ctx context.Context, c *Compiler) *Compilation {
	return &Compilation{
		compiler: c,
		ctx:      ctx,
		phase:    PhaseIdle,
		assets:   make(map[string]Asset),
		unitIDs:  make(map[string]struct{}),
		outputs:  make(map[string]string),
	}
}

// Phase returns the current phase of the run.
func (comp *Compilation) Phase() Phase {
	comp.mutex.RLock()
	defer comp.mutex.RUnlock()
	return comp.phase
}

func (comp *Compilation) setPhase(p Phase) {
	comp.mutex.Lock()
	comp.phase = p
	comp.mutex.Unlock()
}

// Context returns the context of the run, for listeners that fire their own
// hooks.
func (comp *Compilation) Context() context.Context { return comp.ctx }

// Config returns the configuration of the run.
func (comp *Compilation) Config() *config.Config { return comp.compiler.config }

// Modules returns the module registry shared across runs.
func (comp *Compilation) Modules() *registry.Modules { return comp.compiler.modules }

// Hooks returns the named hook registry of the compiler.
func (comp *Compilation) Hooks() *hooks.Registry { return comp.compiler.registry }

// Logger returns the compiler logger.
func (comp *Compilation) Logger() logging.Logger { return comp.compiler.logger }

// AddUnit queues a unit for transformation. Units can be added during setup
// and during the build hook, before transformation starts.
func (comp *Compilation) AddUnit(unit Unit) error {
	comp.mutex.Lock()
	defer comp.mutex.Unlock()

	if comp.transforming || (comp.phase != PhaseSetup && comp.phase != PhaseBuilding) {
		return errors.NewInvalidState(unit.ID, fmt.Sprintf("units cannot be added while %s", comp.phase))
	}
	if unit.ID == "" {
		return errors.NewConfigError("unit", "unit id is empty")
	}
	if _, ok := comp.unitIDs[unit.ID]; ok {
		return errors.NewInvalidState(unit.ID, "unit already added")
	}

	comp.unitIDs[unit.ID] = struct{}{}
	comp.units = append(comp.units, unit)
	return nil
}

// Units returns the queued units in insertion order.
func (comp *Compilation) Units() []Unit {
	comp.mutex.RLock()
	defer comp.mutex.RUnlock()
	units := make([]Unit, len(comp.units))
	copy(units, comp.units)
	return units
}

func (comp *Compilation) startTransforming() []Unit {
	comp.mutex.Lock()
	defer comp.mutex.Unlock()
	comp.transforming = true
	units := make([]Unit, len(comp.units))
	copy(units, comp.units)
	return units
}

// OutputOf returns the asset name produced for a unit.
func (comp *Compilation) OutputOf(unitID string) (string, bool) {
	comp.mutex.RLock()
	defer comp.mutex.RUnlock()
	name, ok := comp.outputs[unitID]
	return name, ok
}

func (comp *Compilation) checkMutable(name string) error {
	if comp.phase != PhaseBuilding && comp.phase != PhaseFinalizing {
		return errors.NewInvalidState(name, fmt.Sprintf("assets cannot be modified while %s", comp.phase))
	}
	return nil
}

// EmitAsset adds a new asset.
func (comp *Compilation) EmitAsset(name string, asset Asset) error {
	if name == "" {
		return errors.NewConfigError("asset", "asset name is empty")
	}
	if asset == nil {
		return errors.NewConfigError(name, "nil asset")
	}

	comp.mutex.Lock()
	defer comp.mutex.Unlock()

	if err := comp.checkMutable(name); err != nil {
		return err
	}
	if _, ok := comp.assets[name]; ok {
		return errors.NewInvalidState(name, "asset already exists")
	}
	comp.assets[name] = asset
	return nil
}

// emitFile adds a file emitted by a loader stage. Re-emitting identical bytes
// under an existing name is accepted, so content-hashed names dedupe.
func (comp *Compilation) emitFile(name string, content []byte) error {
	if name == "" {
		return errors.NewConfigError("asset", "asset name is empty")
	}

	comp.mutex.Lock()
	defer comp.mutex.Unlock()

	if err := comp.checkMutable(name); err != nil {
		return err
	}
	if existing, ok := comp.assets[name]; ok {
		if bytes.Equal(existing.Source(), content) {
			return nil
		}
		return errors.NewInvalidState(name, "asset already exists with different content")
	}
	comp.assets[name] = RawAsset(content)
	return nil
}

// UpdateAsset replaces an existing asset with update applied to it.
func (comp *Compilation) UpdateAsset(name string, update func(Asset) Asset) error {
	comp.mutex.Lock()
	defer comp.mutex.Unlock()

	if err := comp.checkMutable(name); err != nil {
		return err
	}
	current, ok := comp.assets[name]
	if !ok {
		return errors.NewInvalidState(name, "asset does not exist")
	}

	next := update(current)
	if next == nil {
		return errors.NewConfigError(name, "update returned nil asset")
	}
	comp.assets[name] = next
	return nil
}

// DeleteAsset removes an asset.
func (comp *Compilation) DeleteAsset(name string) error {
	comp.mutex.Lock()
	defer comp.mutex.Unlock()

	if err := comp.checkMutable(name); err != nil {
		return err
	}
	if _, ok := comp.assets[name]; !ok {
		return errors.NewInvalidState(name, "asset does not exist")
	}
	delete(comp.assets, name)
	return nil
}

// Asset returns the asset stored under name.
func (comp *Compilation) Asset(name string) (Asset, bool) {
	comp.mutex.RLock()
	defer comp.mutex.RUnlock()
	asset, ok := comp.assets[name]
	return asset, ok
}

// AssetNames returns the asset names in sorted order.
func (comp *Compilation) AssetNames() []string {
	comp.mutex.RLock()
	defer comp.mutex.RUnlock()
	return sortedNames(comp.assets)
}

// Stats returns the name and current size of every asset.
func (comp *Compilation) Stats() []AssetStat {
	comp.mutex.RLock()
	defer comp.mutex.RUnlock()
	return statsOf(comp.assets)
}

func (comp *Compilation) recordOutput(unitID, name string, asset Asset) error {
	if err := comp.EmitAsset(name, asset); err != nil {
		return err
	}
	comp.mutex.Lock()
	comp.outputs[unitID] = name
	comp.mutex.Unlock()
	return nil
}

func (comp *Compilation) freeze() *Result {
	comp.mutex.RLock()
	defer comp.mutex.RUnlock()

	assets := make(map[string]Asset, len(comp.assets))
	for name, asset := range comp.assets {
		assets[name] = asset
	}
	outputs := make(map[string]string, len(comp.outputs))
	for id, name := range comp.outputs {
		outputs[id] = name
	}
	return &Result{assets: assets, outputs: outputs}
}
