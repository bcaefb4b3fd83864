package loaders

import (
	"github.com/conneroisu/minipack/internal/loader"
)

// NewRaw returns a loader that passes bytes through untouched.
func NewRaw() *loader.Loader {
	return &loader.Loader{
		Name: RawLoader,
		Raw:  true,
		Normal: func(lc *loader.Context, in loader.Payload) (*loader.Payload, error) {
			lc.Logger().Debug(lc.Ctx(), "Raw content", "resource", lc.Resource, "bytes", len(in.Content))
			return &in, nil
		},
	}
}
