package core

// textreader.go normalizes the byte stream of uploaded CSV files before the
// CSV parser sees it:
//
//   - a UTF-8 BOM (common in files saved by Excel on Windows) is removed
//   - UTF-16 files that start with a BOM are transcoded to UTF-8
//   - invalid UTF-8 sequences are replaced with U+FFFD
//
// Use NewTextReader to apply all of these in one wrapper.

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewTextReader wraps r so that it yields valid UTF-8 with no leading BOM.
func NewTextReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}
