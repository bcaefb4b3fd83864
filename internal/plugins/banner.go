package plugins

import (
	"fmt"
	"sort"
	"strings"

	"github.com/conneroisu/minipack/internal/compiler"
)

// Banner prefixes script and stylesheet assets with a comment listing its
// options.
type Banner struct {
	prefix []byte
}

// NewBanner builds a banner plugin. Every option becomes a "key: value" line
// of the comment, in key order.
func NewBanner(options map[string]any) (compiler.Plugin, error) {
	keys := make([]string, 0, len(options))
	for key := range options {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("/**")
	for _, key := range keys {
		fmt.Fprintf(&b, "\n * %s: %v", key, options[key])
	}
	b.WriteString("\n */\n")

	return &Banner{prefix: []byte(b.String())}, nil
}

// Name returns the plugin name
func (p *Banner) Name() string { return BannerPlugin }

// Apply taps the finalize hook
func (p *Banner) Apply(c *compiler.Compiler) error {
	return c.Hooks().Finalize.Tap(BannerPlugin, func(comp *compiler.Compilation) error {
		for _, name := range comp.AssetNames() {
			switch extension(name) {
			case "js", "css":
			default:
				continue
			}

			err := comp.UpdateAsset(name, func(asset compiler.Asset) compiler.Asset {
				return compiler.Derive(asset, func(content []byte) []byte {
					return append(append([]byte{}, p.prefix...), content...)
				})
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}
