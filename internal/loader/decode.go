package loader

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText converts content to UTF-8 text for non-raw stages. A UTF-8 or
// UTF-16 byte order mark selects the source encoding and is dropped; invalid
// sequences become U+FFFD.
func decodeText(content []byte) []byte {
	if utf8.Valid(content) && !bytes.HasPrefix(content, utf8BOM) {
		return content
	}

	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	decoded, _, err := transform.Bytes(decoder, content)
	if err != nil {
		return bytes.ToValidUTF8(content, []byte("�"))
	}
	return decoded
}
