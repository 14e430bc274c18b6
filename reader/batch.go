package reader

import (
	"errors"
	"fmt"

	"github.com/vegasq/piiscrub/format"
)

// DefaultBatchSize is the number of records per batch when none is given.
const DefaultBatchSize = 5000

// Batch is a bounded group of records that share one column set.
//
// Columns carries the output order; each row maps every column name to a
// scalar value (string, json.Number, int64, float64, bool or nil).
type Batch struct {
	Columns []string
	Rows    []map[string]interface{}
}

// Len returns the number of records in the batch.
func (b *Batch) Len() int {
	return len(b.Rows)
}

// HasColumn reports whether name is one of the batch columns.
func (b *Batch) HasColumn(name string) bool {
	for _, c := range b.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// BatchReader yields batches lazily. Next returns io.EOF once the input is
// exhausted; a BatchReader cannot be restarted.
type BatchReader interface {
	Next() (*Batch, error)
}

// ParseError reports malformed source content for the declared format.
type ParseError struct {
	Format format.Format
	// Record is the 1-based record (line, array element or row) where
	// parsing failed, or 0 when unknown.
	Record int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Record > 0 {
		return fmt.Sprintf("failed to parse %s content at record %d: %v", e.Format, e.Record, e.Err)
	}
	return fmt.Sprintf("failed to parse %s content: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var errEmptyInput = errors.New("input is empty")

// NewBatchReader returns a BatchReader over content in the given format.
//
// A size of zero or less selects DefaultBatchSize. The format is validated
// before any content is read.
func NewBatchReader(content []byte, f format.Format, size int) (BatchReader, error) {
	if size <= 0 {
		size = DefaultBatchSize
	}

	switch f {
	case format.CSV:
		return newCSVBatchReader(content, size), nil
	case format.JSON:
		return newJSONBatchReader(content, size), nil
	case format.Parquet:
		return newParquetBatchReader(content, size)
	default:
		return nil, &format.UnsupportedFormatError{Format: string(f)}
	}
}
