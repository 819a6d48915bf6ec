package table

// decode.go normalizes the text encoding of comma-separated uploads.
//
// Files saved by Windows tools often start with a byte order mark, and some
// exports are UTF-16. A BOM decides the encoding; without one the content
// must already be UTF-8, otherwise the encoding cannot be determined and the
// file is rejected rather than silently mangled.

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decodeText returns data as UTF-8 without a byte order mark.
func decodeText(data []byte) ([]byte, error) {
	if hasBOM(data) {
		// BOMOverride picks the decoder from the mark and strips it.
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
		}
		return out, nil
	}

	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8 at byte %d", ErrEncoding, firstInvalid(data))
	}
	return data, nil
}

func hasBOM(data []byte) bool {
	return bytes.HasPrefix(data, bomUTF8) ||
		bytes.HasPrefix(data, bomUTF16LE) ||
		bytes.HasPrefix(data, bomUTF16BE)
}

// firstInvalid returns the offset of the first byte that does not start a
// valid UTF-8 sequence.
func firstInvalid(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}
