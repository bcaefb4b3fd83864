package loaders

import (
	"fmt"

	"github.com/conneroisu/minipack/internal/loader"
)

const bannerSchema = `{
  "type": "object",
  "properties": {
    "author": {"type": "string"}
  },
  "required": ["author"],
  "additionalProperties": false
}`

type bannerOptions struct {
	Author string `json:"author"`
}

// NewBanner returns a loader that prepends an author comment block.
func NewBanner() *loader.Loader {
	return &loader.Loader{
		Name:   BannerLoader,
		Schema: loader.MustSchema(bannerSchema),
		Normal: func(lc *loader.Context, in loader.Payload) (*loader.Payload, error) {
			var opts bannerOptions
			if err := lc.DecodeOptions(&opts); err != nil {
				return nil, err
			}
			banner := fmt.Sprintf("/*\n * Author: %s\n */\n", opts.Author)
			return in.With(append([]byte(banner), in.Content...)), nil
		},
	}
}
