package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/vegasq/piiscrub/reader"
)

// ChunkWriter appends row batches to a destination as canonical CSV.
//
// The header row is written with the first batch only; every later batch
// contributes data rows in the header's column order.
type ChunkWriter struct {
	writer  *csv.Writer
	columns []string
	batches int
	rows    int
}

// NewChunkWriter creates a ChunkWriter appending to w.
func NewChunkWriter(w io.Writer) *ChunkWriter {
	return &ChunkWriter{writer: csv.NewWriter(w)}
}

// Write appends batch, writing the header first when it is the first
// batch seen by this writer.
func (c *ChunkWriter) Write(batch *reader.Batch) error {
	first := c.batches == 0
	if !first && !slices.Equal(c.columns, batch.Columns) {
		return fmt.Errorf("batch %d columns %v do not match header %v", c.batches+1, batch.Columns, c.columns)
	}

	if err := WriteBatch(c.writer, batch, first); err != nil {
		return err
	}
	if first {
		c.columns = batch.Columns
	}
	c.batches++
	c.rows += batch.Len()

	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}

// Batches returns the number of batches written.
func (c *ChunkWriter) Batches() int {
	return c.batches
}

// Rows returns the number of data rows written.
func (c *ChunkWriter) Rows() int {
	return c.rows
}

// WriteBatch writes batch to w, preceded by the column header when
// isFirstBatch is set. Quoting follows encoding/csv: values holding the
// delimiter, a quote or a line break are quoted.
func WriteBatch(w *csv.Writer, batch *reader.Batch, isFirstBatch bool) error {
	if isFirstBatch {
		if err := w.Write(batch.Columns); err != nil {
			return err
		}
	}

	record := make([]string, len(batch.Columns))
	for _, row := range batch.Rows {
		for i, col := range batch.Columns {
			record[i] = formatValue(row[col])
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// formatValue converts a value to string for CSV output
func formatValue(v interface{}) string {
	if v == nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case []byte:
		return string(val)
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", val)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		// Nested values are written as their JSON text
		if b, err := json.Marshal(val); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", val)
	}
}
