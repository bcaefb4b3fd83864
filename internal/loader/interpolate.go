package loader

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

var nameTokenRegex = regexp.MustCompile(`\[(path|name|ext|hash|contenthash)(?::(\d+))?\]`)

// ContentHash returns the hex xxhash of content.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(content))
}

// CleanResource normalizes a resource identifier to a slash separated
// relative path without a leading "./".
func CleanResource(resource string) string {
	cleaned := path.Clean(strings.ReplaceAll(resource, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "./")
	return strings.TrimPrefix(cleaned, "/")
}

// InterpolateName expands a file name template for resource.
//
// Tokens: [path] is the resource directory with a trailing slash (empty at the
// root), [name] the base name without extension, [ext] the extension without
// the dot ("bin" when absent), [hash] and [contenthash] the content hash,
// optionally truncated with [hash:N].
func InterpolateName(template, resource string, content []byte) string {
	cleaned := CleanResource(resource)

	dir := path.Dir(cleaned)
	if dir == "." {
		dir = ""
	} else {
		dir += "/"
	}

	base := path.Base(cleaned)
	ext := path.Ext(base)
	name := strings.TrimSuffix(base, ext)
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "bin"
	}

	var hash string
	return nameTokenRegex.ReplaceAllStringFunc(template, func(token string) string {
		m := nameTokenRegex.FindStringSubmatch(token)
		switch m[1] {
		case "path":
			return dir
		case "name":
			return name
		case "ext":
			return ext
		default:
			if hash == "" {
				hash = ContentHash(content)
			}
			if m[2] != "" {
				if n, err := strconv.Atoi(m[2]); err == nil && n > 0 && n < len(hash) {
					return hash[:n]
				}
			}
			return hash
		}
	})
}
