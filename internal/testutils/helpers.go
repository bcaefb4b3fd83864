// Package testutils holds helpers shared by package tests.
package testutils

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/minipack/internal/config"
	"github.com/conneroisu/minipack/internal/registry"
)

// WriteFiles writes files, keyed by slash separated paths below root, to fs.
func WriteFiles(t *testing.T, fs afero.Fs, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
}

// MemFS returns an in-memory filesystem holding files below root.
func MemFS(t *testing.T, root string, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	WriteFiles(t, fs, root, files)
	return fs
}

// ReadTree returns every file below root keyed by its slash separated
// relative path.
func ReadTree(t *testing.T, fs afero.Fs, root string) map[string]string {
	t.Helper()
	tree := make(map[string]string)
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		content, err := afero.ReadFile(fs, path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		tree[filepath.ToSlash(rel)] = string(content)
		return nil
	})
	require.NoError(t, err)
	return tree
}

// TestConfig returns a valid configuration matching entry patterns below
// the current directory.
func TestConfig(entry ...string) *config.Config {
	cfg := config.Defaults()
	if len(entry) == 0 {
		entry = []string{"**/*"}
	}
	cfg.Entry = entry
	return cfg
}

// DefineValue defines a module whose default export is value.
func DefineValue(t *testing.T, mods *registry.Modules, id string, value any) {
	t.Helper()
	require.NoError(t, mods.Define(id, func(_ *registry.Module, exports *registry.Exports, _ registry.RequireFunc) error {
		exports.Set(registry.DefaultExport, value)
		return nil
	}))
}

// SortedKeys returns the keys of m in order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
