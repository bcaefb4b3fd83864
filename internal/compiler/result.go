package compiler

import (
	"fmt"
	"time"
)

// Result is the frozen asset map of a successful run.
type Result struct {
	assets   map[string]Asset
	outputs  map[string]string
	Duration time.Duration
}

// Asset returns the asset stored under name.
func (r *Result) Asset(name string) (Asset, bool) {
	asset, ok := r.assets[name]
	return asset, ok
}

// Names returns the asset names in sorted order.
func (r *Result) Names() []string {
	return sortedNames(r.assets)
}

// Len returns the number of assets.
func (r *Result) Len() int {
	return len(r.assets)
}

// Stats returns the name and size of every asset.
func (r *Result) Stats() []AssetStat {
	return statsOf(r.assets)
}

// OutputOf returns the asset name produced for a unit.
func (r *Result) OutputOf(unitID string) (string, bool) {
	name, ok := r.outputs[unitID]
	return name, ok
}

// RunError is the single failure of a run, naming the lifecycle stage that
// failed.
type RunError struct {
	Stage string
	Cause error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run failed in %s stage: %v", e.Stage, e.Cause)
}

func (e *RunError) Unwrap() error {
	return e.Cause
}
