// Package plugins provides the built-in plugins. Each plugin is published as a
// registry module whose default export is a compiler.PluginFactory.
package plugins

import (
	"fmt"
	"path"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/conneroisu/minipack/internal/compiler"
	"github.com/conneroisu/minipack/internal/registry"
)

// Module identifiers of the built-in plugins.
const (
	BannerPlugin      = "banner-plugin"
	AnalyzePlugin     = "analyze-plugin"
	CleanPlugin       = "clean-plugin"
	HTMLPlugin        = "html-plugin"
	InlineChunkPlugin = "inline-chunk-plugin"
)

var factories = map[string]compiler.PluginFactory{
	BannerPlugin:      NewBanner,
	AnalyzePlugin:     NewAnalyze,
	CleanPlugin:       NewClean,
	HTMLPlugin:        NewHTML,
	InlineChunkPlugin: NewInlineChunk,
}

// Names returns the identifiers of the built-in plugins.
func Names() []string {
	return []string{AnalyzePlugin, BannerPlugin, CleanPlugin, HTMLPlugin, InlineChunkPlugin}
}

// Register defines every built-in plugin as a module of mods.
func Register(mods *registry.Modules) error {
	for _, id := range Names() {
		factory := factories[id]
		err := mods.Define(id, func(_ *registry.Module, exports *registry.Exports, _ registry.RequireFunc) error {
			exports.MarkESModule()
			exports.Set(registry.DefaultExport, factory)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to register plugin %s: %w", id, err)
		}
	}
	return nil
}

// decodeOptions decodes plugin options into target, rejecting unknown keys.
func decodeOptions(options map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}

func extension(name string) string {
	return strings.TrimPrefix(path.Ext(name), ".")
}
