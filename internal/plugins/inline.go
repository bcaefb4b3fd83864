package plugins

import (
	"fmt"
	"regexp"

	"github.com/conneroisu/minipack/internal/compiler"
)

type inlineOptions struct {
	Tests []string `json:"tests"`
}

// InlineChunk inlines matching scripts into the html document and drops the
// inlined assets afterwards.
type InlineChunk struct {
	tests []*regexp.Regexp
}

// NewInlineChunk builds an inline-chunk plugin from the tests option, a list
// of regular expressions matched against asset names.
func NewInlineChunk(options map[string]any) (compiler.Plugin, error) {
	var opts inlineOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}

	p := &InlineChunk{}
	for i, test := range opts.Tests {
		re, err := regexp.Compile(test)
		if err != nil {
			return nil, fmt.Errorf("tests[%d]: %w", i, err)
		}
		p.tests = append(p.tests, re)
	}
	return p, nil
}

// Name returns the plugin name
func (p *InlineChunk) Name() string { return InlineChunkPlugin }

// Apply taps the html plugin hooks
func (p *InlineChunk) Apply(c *compiler.Compiler) error {
	alter, afterEmit, err := HTMLHooks(c)
	if err != nil {
		return err
	}

	err = alter.Tap(InlineChunkPlugin, func(tags *AssetTags) error {
		tags.Head = p.inline(tags.Compilation, tags.Head)
		tags.Body = p.inline(tags.Compilation, tags.Body)
		return nil
	})
	if err != nil {
		return err
	}

	return afterEmit.Tap(InlineChunkPlugin, func(tags *AssetTags) error {
		comp := tags.Compilation
		for _, name := range comp.AssetNames() {
			if !p.matches(name) {
				continue
			}
			if err := comp.DeleteAsset(name); err != nil {
				return err
			}
			comp.Logger().Debug(comp.Context(), "Dropped inlined asset", "asset", name)
		}
		return nil
	})
}

func (p *InlineChunk) inline(comp *compiler.Compilation, tags []*Tag) []*Tag {
	out := make([]*Tag, len(tags))
	for i, tag := range tags {
		out[i] = tag
		if tag.Name != "script" {
			continue
		}
		src, ok := tag.Attr("src")
		if !ok || !p.matches(src) {
			continue
		}
		asset, ok := comp.Asset(src)
		if !ok {
			continue
		}
		out[i] = &Tag{Name: "script", InnerHTML: string(asset.Source())}
	}
	return out
}

func (p *InlineChunk) matches(name string) bool {
	for _, re := range p.tests {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
