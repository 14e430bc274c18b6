package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/piiscrub/reader"
)

func batchOf(columns []string, rows ...map[string]interface{}) *reader.Batch {
	return &reader.Batch{Columns: columns, Rows: rows}
}

func TestChunkWriter_HeaderOnce(t *testing.T) {
	cols := []string{"id", "name"}

	var buf bytes.Buffer
	w := NewChunkWriter(&buf)
	require.NoError(t, w.Write(batchOf(cols, map[string]interface{}{"id": "1", "name": "alice"})))
	require.NoError(t, w.Write(batchOf(cols, map[string]interface{}{"id": "2", "name": "bob"})))
	require.NoError(t, w.Write(batchOf(cols, map[string]interface{}{"id": "3", "name": "carol"})))

	assert.Equal(t, "id,name\n1,alice\n2,bob\n3,carol\n", buf.String())
	assert.Equal(t, 3, w.Batches())
	assert.Equal(t, 3, w.Rows())
}

func TestChunkWriter_ColumnOrder(t *testing.T) {
	// batch column order wins, not alphabetical order
	var buf bytes.Buffer
	w := NewChunkWriter(&buf)
	require.NoError(t, w.Write(batchOf([]string{"z_last", "a_first"},
		map[string]interface{}{"a_first": "2", "z_last": "1"})))

	assert.Equal(t, "z_last,a_first\n1,2\n", buf.String())
}

func TestChunkWriter_Quoting(t *testing.T) {
	var buf bytes.Buffer
	w := NewChunkWriter(&buf)
	require.NoError(t, w.Write(batchOf([]string{"a", "b", "c"},
		map[string]interface{}{"a": "x,y", "b": `say "hi"`, "c": "line1\nline2"})))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"x,y", `say "hi"`, "line1\nline2"}, records[1])
	assert.Contains(t, buf.String(), `"x,y"`)
}

func TestChunkWriter_EmptyFirstBatch(t *testing.T) {
	var buf bytes.Buffer
	w := NewChunkWriter(&buf)
	require.NoError(t, w.Write(batchOf([]string{"a", "b"})))
	assert.Equal(t, "a,b\n", buf.String())
}

func TestChunkWriter_ColumnMismatch(t *testing.T) {
	var buf bytes.Buffer
	w := NewChunkWriter(&buf)
	require.NoError(t, w.Write(batchOf([]string{"a"}, map[string]interface{}{"a": "1"})))
	assert.Error(t, w.Write(batchOf([]string{"b"}, map[string]interface{}{"b": "1"})))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{name: "nil", in: nil, want: ""},
		{name: "string", in: "alice", want: "alice"},
		{name: "number", in: json.Number("12.50"), want: "12.50"},
		{name: "int64", in: int64(42), want: "42"},
		{name: "int32", in: int32(-7), want: "-7"},
		{name: "float64", in: 95.5, want: "95.5"},
		{name: "bool", in: true, want: "true"},
		{name: "list", in: []interface{}{"a", int64(1)}, want: `["a",1]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatValue(tt.in))
		})
	}
}
