package loaders

import (
	"fmt"
	"path"
	"strings"

	"github.com/conneroisu/minipack/internal/loader"
)

const styleScript = `import style from %q;
const styleEl = document.createElement('style');
styleEl.innerHTML = style;
document.head.appendChild(styleEl);
`

// NewStyle returns a pitching loader that replaces the chain with a script
// importing the rest of the request and injecting it into the document.
func NewStyle() *loader.Loader {
	return &loader.Loader{
		Name: StyleLoader,
		Pitch: func(lc *loader.Context, remaining, _ string) (*loader.Payload, error) {
			request := "!!" + relativeRequest(remaining)
			return loader.Text(fmt.Sprintf(styleScript, request)), nil
		},
		Normal: func(lc *loader.Context, in loader.Payload) (*loader.Payload, error) {
			return &in, nil
		},
	}
}

// relativeRequest rewrites the resource part of a request relative to the
// directory of the unit.
func relativeRequest(request string) string {
	parts := strings.Split(request, "!")
	last := len(parts) - 1
	parts[last] = "./" + path.Base(loader.CleanResource(parts[last]))
	return strings.Join(parts, "!")
}
