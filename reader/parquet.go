package reader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/piiscrub/format"
)

// ColumnOrderKey is the parquet key/value metadata entry holding the
// original column order as a JSON array of names.
const ColumnOrderKey = "piiscrub.columns"

// parquetBatchReader materializes row batches from a parquet file.
//
// Rows are pulled from the file with ReadRows, size rows at a time, and
// converted from column values to row-oriented records.
type parquetBatchReader struct {
	pqFile  *parquet.File
	reader  *parquet.Reader
	size    int
	leaves  []string
	columns []string
	buf     []parquet.Row
	row     int
	emitted bool
	done    bool
}

func openParquet(content []byte) (*parquet.File, error) {
	if len(content) == 0 {
		return nil, &ParseError{Format: format.Parquet, Err: errEmptyInput}
	}
	pqFile, err := parquet.OpenFile(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, &ParseError{Format: format.Parquet, Err: fmt.Errorf("failed to open parquet file: %w", err)}
	}
	return pqFile, nil
}

func newParquetBatchReader(content []byte, size int) (*parquetBatchReader, error) {
	pqFile, err := openParquet(content)
	if err != nil {
		return nil, err
	}

	leaves := leafNames(pqFile.Schema())
	return &parquetBatchReader{
		pqFile:  pqFile,
		reader:  parquet.NewReader(pqFile),
		size:    size,
		leaves:  leaves,
		columns: columnOrder(pqFile, leaves),
		buf:     make([]parquet.Row, min(size, 1024)),
	}, nil
}

func (p *parquetBatchReader) Next() (*Batch, error) {
	if p.done {
		return nil, io.EOF
	}

	batch := &Batch{
		Columns: p.columns,
		Rows:    make([]map[string]interface{}, 0, len(p.buf)),
	}

	for len(batch.Rows) < p.size {
		want := min(p.size-len(batch.Rows), len(p.buf))
		n, err := p.reader.ReadRows(p.buf[:want])
		for _, row := range p.buf[:n] {
			batch.Rows = append(batch.Rows, p.materialize(row))
		}
		p.row += n

		if err != nil {
			if errors.Is(err, io.EOF) {
				p.done = true
				_ = p.reader.Close()
				break
			}
			p.done = true
			_ = p.reader.Close()
			return nil, &ParseError{Format: format.Parquet, Record: p.row + 1, Err: fmt.Errorf("failed to read row: %w", err)}
		}
		if n == 0 {
			p.done = true
			_ = p.reader.Close()
			break
		}
	}

	if len(batch.Rows) == 0 && p.emitted {
		return nil, io.EOF
	}
	p.emitted = true
	return batch, nil
}

// materialize turns one parquet row into a record keyed by leaf column
// name. A leaf holding several values (a repeated column) collects them
// into a slice.
func (p *parquetBatchReader) materialize(row parquet.Row) map[string]interface{} {
	rec := make(map[string]interface{}, len(p.leaves))
	for _, name := range p.leaves {
		rec[name] = nil
	}

	for _, v := range row {
		col := v.Column()
		if col < 0 || col >= len(p.leaves) || v.IsNull() {
			continue
		}
		name := p.leaves[col]
		val := goValue(v)

		switch prev := rec[name].(type) {
		case nil:
			rec[name] = val
		case []interface{}:
			rec[name] = append(prev, val)
		default:
			rec[name] = []interface{}{prev, val}
		}
	}
	return rec
}

// goValue converts a parquet value to the closest Go scalar.
func goValue(v parquet.Value) interface{} {
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}

// leafNames returns the dotted path of every leaf column in schema order.
func leafNames(schema *parquet.Schema) []string {
	paths := schema.Columns()
	names := make([]string, len(paths))
	for i, path := range paths {
		names[i] = strings.Join(path, ".")
	}
	return names
}

// columnOrder prefers the order recorded by the parquet converter and
// falls back to the schema's leaf order.
func columnOrder(pqFile *parquet.File, leaves []string) []string {
	raw, ok := pqFile.Lookup(ColumnOrderKey)
	if !ok {
		return leaves
	}

	var recorded []string
	if err := json.Unmarshal([]byte(raw), &recorded); err != nil || len(recorded) != len(leaves) {
		return leaves
	}

	known := make(map[string]bool, len(leaves))
	for _, l := range leaves {
		known[l] = true
	}
	for _, r := range recorded {
		if !known[r] {
			return leaves
		}
	}
	return recorded
}
