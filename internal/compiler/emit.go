package compiler

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/conneroisu/minipack/internal/errors"
)

// EmittedFile describes one written asset.
type EmittedFile struct {
	Name string
	Path string
	Size int
}

// Emit writes the assets of result below the output path. It writes nothing
// when a shouldEmit listener bails; otherwise beforeEmit fires first.
func (c *Compiler) Emit(ctx context.Context, result *Result) ([]EmittedFile, error) {
	if result == nil {
		return nil, errors.NewInvalidState("emit", "no result to emit")
	}

	bailed, err := c.hooks.ShouldEmit.CallBail(ctx, result)
	if err != nil {
		return nil, err
	}
	if bailed {
		c.logger.Info(ctx, "Emit skipped by listener")
		return nil, nil
	}
	if err := c.hooks.BeforeEmit.Call(ctx, result); err != nil {
		return nil, err
	}

	root := c.config.Output.Path
	if err := c.outputFS.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	files := make([]EmittedFile, 0, result.Len())
	for _, name := range result.Names() {
		if err := ctx.Err(); err != nil {
			return files, err
		}

		asset, _ := result.Asset(name)
		target := filepath.Join(root, filepath.FromSlash(name))
		if err := c.outputFS.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return files, fmt.Errorf("failed to create directory for %s: %w", name, err)
		}

		content := asset.Source()
		if err := afero.WriteFile(c.outputFS, target, content, 0o644); err != nil {
			return files, fmt.Errorf("failed to write %s: %w", name, err)
		}
		files = append(files, EmittedFile{Name: name, Path: target, Size: len(content)})
	}

	c.metrics.RecordEmit(len(files))
	c.logger.Info(ctx, "Emitted assets", "count", len(files), "path", root)
	return files, nil
}
