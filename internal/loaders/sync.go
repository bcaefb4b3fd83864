package loaders

import (
	"github.com/conneroisu/minipack/internal/loader"
)

// NewSync returns a loader that completes through the callback before
// returning, keeping the source map and metadata.
func NewSync() *loader.Loader {
	return &loader.Loader{
		Name: SyncLoader,
		Normal: func(lc *loader.Context, in loader.Payload) (*loader.Payload, error) {
			if err := lc.Callback()(nil, &in); err != nil {
				return nil, err
			}
			return nil, nil
		},
	}
}
