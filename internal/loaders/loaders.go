// Package loaders provides the built-in loaders. Each loader is published as
// a registry module whose default export is a *loader.Loader.
package loaders

import (
	"fmt"

	"github.com/conneroisu/minipack/internal/loader"
	"github.com/conneroisu/minipack/internal/registry"
)

// Module identifiers of the built-in loaders.
const (
	BannerLoader   = "banner-loader"
	CleanLogLoader = "clean-log-loader"
	RawLoader      = "raw-loader"
	FileLoader     = "file-loader"
	StyleLoader    = "style-loader"
	AsyncLoader    = "async-loader"
	SyncLoader     = "sync-loader"
)

var builtins = map[string]func() *loader.Loader{
	BannerLoader:   NewBanner,
	CleanLogLoader: NewCleanLog,
	RawLoader:      NewRaw,
	FileLoader:     NewFile,
	StyleLoader:    NewStyle,
	AsyncLoader:    NewAsync,
	SyncLoader:     NewSync,
}

// Names returns the identifiers of the built-in loaders.
func Names() []string {
	return []string{
		AsyncLoader, BannerLoader, CleanLogLoader, FileLoader,
		RawLoader, StyleLoader, SyncLoader,
	}
}

// Register defines every built-in loader as a module of mods.
func Register(mods *registry.Modules) error {
	for _, id := range Names() {
		build := builtins[id]
		err := mods.Define(id, func(_ *registry.Module, exports *registry.Exports, _ registry.RequireFunc) error {
			exports.MarkESModule()
			exports.Set(registry.DefaultExport, build())
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to register loader %s: %w", id, err)
		}
	}
	return nil
}
