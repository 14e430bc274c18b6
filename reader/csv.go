package reader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/vegasq/piiscrub/format"
)

// csvBatchReader groups CSV lines into batches. The header line is parsed
// once and applied to every batch.
type csvBatchReader struct {
	r       *csv.Reader
	size    int
	header  []string
	line    int
	emitted bool
	done    bool
}

func newCSVBatchReader(content []byte, size int) *csvBatchReader {
	r := csv.NewReader(bytes.NewReader(content))
	return &csvBatchReader{r: r, size: size}
}

func (c *csvBatchReader) Next() (*Batch, error) {
	if c.done {
		return nil, io.EOF
	}

	if c.header == nil {
		header, err := c.r.Read()
		if err != nil {
			c.done = true
			if errors.Is(err, io.EOF) {
				return nil, &ParseError{Format: format.CSV, Err: errEmptyInput}
			}
			return nil, &ParseError{Format: format.CSV, Record: 1, Err: err}
		}
		if err := checkUnique(header); err != nil {
			c.done = true
			return nil, &ParseError{Format: format.CSV, Record: 1, Err: err}
		}
		c.header = header
		c.line = 1
	}

	batch := &Batch{
		Columns: c.header,
		Rows:    make([]map[string]interface{}, 0, min(c.size, 1024)),
	}

	for len(batch.Rows) < c.size {
		record, err := c.r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.done = true
				break
			}
			c.done = true
			return nil, &ParseError{Format: format.CSV, Record: c.line + 1, Err: err}
		}
		c.line++

		row := make(map[string]interface{}, len(c.header))
		for i, col := range c.header {
			row[col] = record[i]
		}
		batch.Rows = append(batch.Rows, row)
	}

	// A header-only file still produces one empty batch so the header
	// reaches the output.
	if len(batch.Rows) == 0 && c.emitted {
		return nil, io.EOF
	}
	c.emitted = true
	return batch, nil
}

func checkUnique(columns []string) error {
	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		if seen[col] {
			return fmt.Errorf("duplicate column %q", col)
		}
		seen[col] = true
	}
	return nil
}
