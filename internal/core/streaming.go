package core

// streaming.go prepares raw CSV bytes for the csv reader without buffering
// the whole input:
//
//   - a leading UTF-8 BOM (common in files saved by Excel) is dropped
//   - invalid UTF-8 sequences are replaced with U+FFFD
//   - bytes consumed are counted for load logging
//
// Use WrapForParsing to apply both in the correct order.

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CountingReader wraps an io.Reader to track bytes read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
}

// NewCountingReader creates a counting reader.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// NewSanitizingReader strips a UTF-8 BOM and repairs invalid UTF-8.
func NewSanitizingReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
}

// WrapForParsing counts raw bytes, then sanitizes them.
// The counter sits below the decoder so BytesRead reflects the input size.
func WrapForParsing(r io.Reader) (io.Reader, *CountingReader) {
	counter := NewCountingReader(r)
	return NewSanitizingReader(counter), counter
}
