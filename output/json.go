package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
)

// JSONEncoder outputs rows as JSON Lines, one object per record with keys
// in column order.
type JSONEncoder struct{}

// NewJSONEncoder creates a new JSON Lines encoder
func NewJSONEncoder() *JSONEncoder {
	return &JSONEncoder{}
}

// Encode writes one JSON object per line. Typed columns are written as
// JSON numbers or booleans, and their empty cells as null.
func (j *JSONEncoder) Encode(w io.Writer, columns []string, kinds []Kind, records [][]string) error {
	bw := bufio.NewWriter(w)

	keys := make([][]byte, len(columns))
	for i, col := range columns {
		k, err := marshalString(col)
		if err != nil {
			return err
		}
		keys[i] = k
	}

	for _, rec := range records {
		if err := bw.WriteByte('{'); err != nil {
			return err
		}
		for i := range columns {
			if i > 0 {
				_ = bw.WriteByte(',')
			}
			_, _ = bw.Write(keys[i])
			_ = bw.WriteByte(':')

			var cell string
			if i < len(rec) {
				cell = rec[i]
			}
			switch {
			case kinds[i] != KindString && cell == "":
				_, _ = bw.WriteString("null")
			case kinds[i] != KindString:
				_, _ = bw.WriteString(cell)
			default:
				v, err := marshalString(cell)
				if err != nil {
					return err
				}
				_, _ = bw.Write(v)
			}
		}
		if _, err := bw.WriteString("}\n"); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// marshalString encodes s as a JSON string without HTML escaping.
func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
