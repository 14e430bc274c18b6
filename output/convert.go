package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go/compress"

	"github.com/vegasq/piiscrub/format"
)

// Encoder re-encodes a fully parsed CSV table.
type Encoder interface {
	// Encode writes columns and records, with kinds inferred per column
	Encode(w io.Writer, columns []string, kinds []Kind, records [][]string) error
}

// ConvertOption configures Convert.
type ConvertOption func(*convertConfig)

type convertConfig struct {
	codec compress.Codec
}

// WithCompression sets the parquet page compression codec.
func WithCompression(codec compress.Codec) ConvertOption {
	return func(c *convertConfig) {
		c.codec = codec
	}
}

// Convert re-encodes a complete canonical CSV buffer into target.
//
// A csv target returns the content unchanged. Empty content converts to
// empty output for every target.
func Convert(content []byte, target format.Format, opts ...ConvertOption) (*bytes.Buffer, error) {
	cfg := convertConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	var enc Encoder
	switch target {
	case format.CSV:
		return bytes.NewBuffer(content), nil
	case format.JSON:
		enc = NewJSONEncoder()
	case format.Parquet:
		enc = NewParquetEncoder(cfg.codec)
	default:
		return nil, &format.UnsupportedFormatError{Format: string(target)}
	}

	if len(content) == 0 {
		return new(bytes.Buffer), nil
	}

	records, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV buffer: %w", err)
	}
	if len(records) == 0 {
		return new(bytes.Buffer), nil
	}

	columns, rows := records[0], records[1:]
	kinds := InferKinds(columns, rows)

	var out bytes.Buffer
	if err := enc.Encode(&out, columns, kinds, rows); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", target, err)
	}
	return &out, nil
}
