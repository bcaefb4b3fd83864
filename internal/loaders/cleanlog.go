package loaders

import (
	"regexp"

	"github.com/conneroisu/minipack/internal/loader"
)

var consoleLog = regexp.MustCompile(`console\.log\(.*\);?`)

// NewCleanLog returns a loader that strips console.log statements.
func NewCleanLog() *loader.Loader {
	return &loader.Loader{
		Name: CleanLogLoader,
		Normal: func(lc *loader.Context, in loader.Payload) (*loader.Payload, error) {
			return in.With(consoleLog.ReplaceAll(in.Content, nil)), nil
		},
	}
}
