package plugins

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/conneroisu/minipack/internal/compiler"
)

// Clean empties the output directory right before assets are written. The
// directory itself is kept. A failed build or a shouldEmit bail leaves the
// previous output in place.
type Clean struct{}

// NewClean builds a clean plugin. It takes no options.
func NewClean(options map[string]any) (compiler.Plugin, error) {
	if err := decodeOptions(options, &struct{}{}); err != nil {
		return nil, err
	}
	return &Clean{}, nil
}

// Name returns the plugin name
func (p *Clean) Name() string { return CleanPlugin }

// Apply taps the beforeEmit hook
func (p *Clean) Apply(c *compiler.Compiler) error {
	return c.Hooks().BeforeEmit.Tap(CleanPlugin, func(*compiler.Result) error {
		root := c.Config().Output.Path
		removed, err := EmptyDir(c.OutputFS(), root)
		if err != nil {
			return err
		}
		c.Logger().Debug(context.Background(), "Cleaned output directory", "path", root, "removed", removed)
		return nil
	})
}

// EmptyDir removes every entry below dir and returns how many top level
// entries were removed. A missing dir is not an error.
func EmptyDir(fs afero.Fs, dir string) (int, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read output directory: %w", err)
	}

	for _, entry := range entries {
		if err := fs.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return 0, fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
	}
	return len(entries), nil
}
