package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/vegasq/piiscrub/reader"
)

// ParquetEncoder writes rows as a parquet file whose schema is inferred
// from the column kinds. Every column is optional so empty cells of typed
// columns can be stored as nulls. The original column order is kept in the
// file metadata under reader.ColumnOrderKey.
type ParquetEncoder struct {
	codec compress.Codec
}

// NewParquetEncoder creates a parquet encoder. A nil codec selects Snappy.
func NewParquetEncoder(codec compress.Codec) *ParquetEncoder {
	if codec == nil {
		codec = &parquet.Snappy
	}
	return &ParquetEncoder{codec: codec}
}

// CompressionCodec resolves a codec name from configuration.
func CompressionCodec(name string) (compress.Codec, error) {
	switch strings.ToLower(name) {
	case "", "snappy":
		return &parquet.Snappy, nil
	case "none", "uncompressed":
		return &parquet.Uncompressed, nil
	case "gzip":
		return &parquet.Gzip, nil
	case "brotli":
		return &parquet.Brotli, nil
	case "zstd":
		return &parquet.Zstd, nil
	case "lz4":
		return &parquet.Lz4Raw, nil
	default:
		return nil, fmt.Errorf("unknown parquet compression '%s' (supported: none, snappy, gzip, brotli, zstd, lz4)", name)
	}
}

func kindNode(k Kind) parquet.Node {
	switch k {
	case KindInt:
		return parquet.Optional(parquet.Int(64))
	case KindFloat:
		return parquet.Optional(parquet.Leaf(parquet.DoubleType))
	case KindBool:
		return parquet.Optional(parquet.Leaf(parquet.BooleanType))
	default:
		return parquet.Optional(parquet.String())
	}
}

// Encode writes all records as a single parquet file.
func (p *ParquetEncoder) Encode(w io.Writer, columns []string, kinds []Kind, records [][]string) error {
	group := make(parquet.Group, len(columns))
	for i, col := range columns {
		if _, dup := group[col]; dup {
			return fmt.Errorf("duplicate column %q", col)
		}
		group[col] = kindNode(kinds[i])
	}
	schema := parquet.NewSchema("piiscrub", group)

	order, err := json.Marshal(columns)
	if err != nil {
		return err
	}

	// Group leaves are sorted by name; map each leaf back to its CSV column
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		index[col] = i
	}
	leaves := schema.Columns()
	source := make([]int, len(leaves))
	for li, path := range leaves {
		source[li] = index[strings.Join(path, ".")]
	}

	writer := parquet.NewWriter(w, schema,
		parquet.Compression(p.codec),
		parquet.KeyValueMetadata(reader.ColumnOrderKey, string(order)),
	)

	rows := make([]parquet.Row, 0, 1)
	for n, rec := range records {
		row := make(parquet.Row, len(leaves))
		for li, ci := range source {
			var cell string
			if ci < len(rec) {
				cell = rec[ci]
			}
			v, err := parquetValue(kinds[ci], cell)
			if err != nil {
				return fmt.Errorf("record %d column %q: %w", n+1, columns[ci], err)
			}
			if v.IsNull() {
				row[li] = v.Level(0, 0, li)
			} else {
				row[li] = v.Level(0, 1, li)
			}
		}
		rows = append(rows[:0], row)
		if _, err := writer.WriteRows(rows); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

func parquetValue(k Kind, cell string) (parquet.Value, error) {
	if k != KindString && cell == "" {
		return parquet.NullValue(), nil
	}

	switch k {
	case KindInt:
		v, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return parquet.Value{}, err
		}
		return parquet.Int64Value(v), nil
	case KindFloat:
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return parquet.Value{}, err
		}
		return parquet.DoubleValue(v), nil
	case KindBool:
		return parquet.BooleanValue(cell == "true"), nil
	default:
		return parquet.ByteArrayValue([]byte(cell)), nil
	}
}
