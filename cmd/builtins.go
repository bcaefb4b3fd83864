package cmd

import (
	"github.com/conneroisu/minipack/internal/loaders"
	"github.com/conneroisu/minipack/internal/logging"
	"github.com/conneroisu/minipack/internal/plugins"
	"github.com/conneroisu/minipack/internal/registry"
)

// newModules returns a registry holding the built-in loaders and plugins.
func newModules(logger logging.Logger) (*registry.Modules, error) {
	mods := registry.New(registry.WithLogger(logger))
	if err := loaders.Register(mods); err != nil {
		return nil, err
	}
	if err := plugins.Register(mods); err != nil {
		return nil, err
	}
	return mods, nil
}
