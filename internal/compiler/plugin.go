package compiler

import (
	"context"
	"fmt"

	"github.com/conneroisu/minipack/internal/errors"
	"github.com/conneroisu/minipack/internal/registry"
)

// Plugin taps compiler hooks when applied.
type Plugin interface {
	// Name returns the unique name of the plugin
	Name() string

	// Apply registers the plugin's listeners on c
	Apply(c *Compiler) error
}

// PluginFactory builds a plugin from its configured options. Plugin modules
// export a PluginFactory as their default export.
type PluginFactory func(options map[string]any) (Plugin, error)

// PluginFunc adapts a function to the Plugin interface.
type PluginFunc struct {
	PluginName string
	ApplyFunc  func(c *Compiler) error
}

func (p PluginFunc) Name() string { return p.PluginName }

func (p PluginFunc) Apply(c *Compiler) error { return p.ApplyFunc(c) }

func (c *Compiler) applyPlugins() error {
	for i, pc := range c.config.Plugins {
		factory, err := registry.Export[PluginFactory](c.modules, pc.Name, registry.DefaultExport)
		if err != nil {
			return fmt.Errorf("plugins[%d]: %w", i, err)
		}

		plugin, err := factory(pc.Options)
		if err != nil {
			cfgErr := errors.NewConfigError(fmt.Sprintf("plugins[%d]", i), "invalid plugin options")
			cfgErr.Cause = err
			return cfgErr.WithContext("plugin", pc.Name)
		}
		if err := c.apply(plugin); err != nil {
			return err
		}
	}

	for _, plugin := range c.extra {
		if err := c.apply(plugin); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) apply(plugin Plugin) error {
	if err := plugin.Apply(c); err != nil {
		return fmt.Errorf("failed to apply plugin %s: %w", plugin.Name(), err)
	}
	c.plugins = append(c.plugins, plugin)

	c.logger.Debug(context.Background(), "Applied plugin", "plugin", plugin.Name())
	return nil
}
