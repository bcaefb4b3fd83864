package loaders

import (
	"time"

	"github.com/conneroisu/minipack/internal/loader"
)

const asyncSchema = `{
  "type": "object",
  "properties": {
    "delay": {"type": "integer", "minimum": 0}
  },
  "additionalProperties": false
}`

type asyncOptions struct {
	Delay int `json:"delay"`
}

// NewAsync returns a loader that completes asynchronously after an optional
// delay in milliseconds.
func NewAsync() *loader.Loader {
	return &loader.Loader{
		Name:   AsyncLoader,
		Schema: loader.MustSchema(asyncSchema),
		Normal: func(lc *loader.Context, in loader.Payload) (*loader.Payload, error) {
			var opts asyncOptions
			if err := lc.DecodeOptions(&opts); err != nil {
				return nil, err
			}

			done := lc.Async()
			go func() {
				timer := time.NewTimer(time.Duration(opts.Delay) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-timer.C:
					_ = done(nil, &in)
				case <-lc.Ctx().Done():
					_ = done(lc.Ctx().Err(), nil)
				}
			}()
			return nil, nil
		},
	}
}
