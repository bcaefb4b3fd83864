package compiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/conneroisu/minipack/internal/errors"
)

// Unit is one input to transform.
type Unit struct {
	ID      string
	Content []byte
}

// UnitSource discovers the units of a run.
type UnitSource interface {
	Units(ctx context.Context) ([]Unit, error)
}

// StaticSource serves a fixed list of units.
type StaticSource []Unit

func (s StaticSource) Units(context.Context) ([]Unit, error) {
	units := make([]Unit, len(s))
	copy(units, s)
	return units, nil
}

// FSSource discovers units by matching entry patterns below Root. Patterns
// use "*" and "?" within a path segment and "**" across segments.
type FSSource struct {
	Fs       afero.Fs
	Root     string
	Patterns []string
}

func (s FSSource) Units(ctx context.Context) ([]Unit, error) {
	matchers := make([]*regexp.Regexp, 0, len(s.Patterns))
	for _, pattern := range s.Patterns {
		matcher, err := globToRegexp(pattern)
		if err != nil {
			return nil, errors.NewConfigError("entry", fmt.Sprintf("invalid pattern %q: %v", pattern, err))
		}
		matchers = append(matchers, matcher)
	}

	root := s.Root
	if root == "" {
		root = "."
	}

	var ids []string
	err := afero.Walk(s.Fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		for _, matcher := range matchers {
			if matcher.MatchString(rel) {
				ids = append(ids, rel)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover units: %w", err)
	}

	sort.Strings(ids)
	units := make([]Unit, 0, len(ids))
	for _, id := range ids {
		content, err := afero.ReadFile(s.Fs, filepath.Join(root, filepath.FromSlash(id)))
		if err != nil {
			return nil, fmt.Errorf("failed to read unit %s: %w", id, err)
		}
		units = append(units, Unit{ID: id, Content: content})
	}
	return units, nil
}

func globToRegexp(pattern string) (*regexp.Regexp, error) {
	pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")

	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				i++
				if i+1 < len(pattern) && pattern[i+1] == '/' {
					i++
					b.WriteString("(?:.*/)?")
				} else {
					b.WriteString(".*")
				}
				continue
			}
			b.WriteString("[^/]*")
		case '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}
