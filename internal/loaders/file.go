package loaders

import (
	"fmt"
	"strconv"

	"github.com/conneroisu/minipack/internal/loader"
)

// DefaultFileName is the output template of the file loader.
const DefaultFileName = "imgs/[hash].[ext]"

const fileSchema = `{
  "type": "object",
  "properties": {
    "name": {"type": "string", "minLength": 1}
  },
  "additionalProperties": false
}`

type fileOptions struct {
	Name string `json:"name"`
}

// NewFile returns a raw loader that emits the content as a separate file and
// replaces it with a module exporting the emitted name.
func NewFile() *loader.Loader {
	return &loader.Loader{
		Name:   FileLoader,
		Raw:    true,
		Schema: loader.MustSchema(fileSchema),
		Normal: func(lc *loader.Context, in loader.Payload) (*loader.Payload, error) {
			opts := fileOptions{Name: DefaultFileName}
			if err := lc.DecodeOptions(&opts); err != nil {
				return nil, err
			}

			name := loader.InterpolateName(opts.Name, lc.Resource, in.Content)
			if err := lc.EmitFile(name, in.Content); err != nil {
				return nil, fmt.Errorf("failed to emit %s: %w", name, err)
			}
			return in.With([]byte("module.exports = " + strconv.Quote(name))), nil
		},
	}
}
