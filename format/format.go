// Package format defines the tabular encodings understood by piiscrub.
package format

import (
	"fmt"
	"path"
	"strings"
)

// Format is a tabular encoding token.
type Format string

const (
	CSV     Format = "csv"
	JSON    Format = "json"
	Parquet Format = "parquet"
)

// Supported lists every format in display order.
var Supported = []Format{CSV, JSON, Parquet}

// UnsupportedFormatError reports a format token outside of Supported.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format '%s' (supported: csv, json, parquet)", e.Format)
}

// Parse normalizes s to lower case and validates it.
func Parse(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", &UnsupportedFormatError{Format: s}
	}
	return f, nil
}

// FromKey derives the format from an object key's extension, the
// lower-cased text after the last dot.
func FromKey(key string) (Format, error) {
	ext := key
	if i := strings.LastIndex(key, "."); i >= 0 {
		ext = key[i+1:]
	}
	f := Format(strings.ToLower(ext))
	if !f.Valid() {
		return "", &UnsupportedFormatError{Format: ext}
	}
	return f, nil
}

// ReplaceExt swaps the extension of key for f's extension.
func ReplaceExt(key string, f Format) string {
	ext := path.Ext(key)
	return strings.TrimSuffix(key, ext) + "." + string(f)
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	switch f {
	case CSV, JSON, Parquet:
		return true
	}
	return false
}

// Binary reports whether content in this format is raw bytes rather than text.
func (f Format) Binary() bool {
	return f == Parquet
}

func (f Format) String() string {
	return string(f)
}
