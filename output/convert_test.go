package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/piiscrub/format"
	"github.com/vegasq/piiscrub/reader"
)

const obfuscatedCSV = "student_id,name,course,graduation_date,email_address\n" +
	"1234,***,Software,2024-03-31,***\n" +
	"5678,***,DE,2024-06-31,***\n"

func TestInferKinds(t *testing.T) {
	columns := []string{"i", "f", "b", "s", "lead", "empty", "mixed"}
	records := [][]string{
		{"1", "1.5", "true", "x", "007", "", "1"},
		{"-20", "2", "false", "y", "010", "", "abc"},
		{"", "", "", "", "", "", ""},
	}

	got := InferKinds(columns, records)
	assert.Equal(t, []Kind{KindInt, KindFloat, KindBool, KindString, KindString, KindString, KindString}, got)
}

func TestConvert_CSVIdentity(t *testing.T) {
	out, err := Convert([]byte(obfuscatedCSV), format.CSV)
	require.NoError(t, err)
	assert.Equal(t, obfuscatedCSV, out.String())
}

func TestConvert_Unsupported(t *testing.T) {
	_, err := Convert([]byte(obfuscatedCSV), format.Format("xml"))
	var ufe *format.UnsupportedFormatError
	require.ErrorAs(t, err, &ufe)
}

func TestConvert_Empty(t *testing.T) {
	for _, target := range format.Supported {
		out, err := Convert(nil, target)
		require.NoError(t, err)
		assert.Equal(t, 0, out.Len())
	}
}

func TestConvert_JSONLines(t *testing.T) {
	out, err := Convert([]byte(obfuscatedCSV), format.JSON)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t,
		`{"student_id":1234,"name":"***","course":"Software","graduation_date":"2024-03-31","email_address":"***"}`,
		lines[0])

	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		var obj map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &obj))
		assert.Equal(t, "***", obj["name"])
		assert.Equal(t, "***", obj["email_address"])
	}
}

func TestConvert_JSONNullsAndEscapes(t *testing.T) {
	content := "n,s\n1,<a&b>\n,\"q\"\"uote\"\n"
	out, err := Convert([]byte(content), format.JSON)
	require.NoError(t, err)
	assert.Equal(t, "{\"n\":1,\"s\":\"<a&b>\"}\n{\"n\":null,\"s\":\"q\\\"uote\"}\n", out.String())
}

func TestConvert_ParquetRoundTrip(t *testing.T) {
	content := "student_id,name,score,active,note\n" +
		"1234,***,95.5,true,\n" +
		"5678,***,,false,hello\n"

	out, err := Convert([]byte(content), format.Parquet)
	require.NoError(t, err)

	br, err := reader.NewBatchReader(out.Bytes(), format.Parquet, 100)
	require.NoError(t, err)
	batch, err := br.Next()
	require.NoError(t, err)

	assert.Equal(t, []string{"student_id", "name", "score", "active", "note"}, batch.Columns)
	require.Equal(t, 2, batch.Len())
	assert.Equal(t, int64(1234), batch.Rows[0]["student_id"])
	assert.Equal(t, "***", batch.Rows[0]["name"])
	assert.Equal(t, 95.5, batch.Rows[0]["score"])
	assert.Equal(t, true, batch.Rows[0]["active"])
	assert.Equal(t, "", batch.Rows[0]["note"])
	assert.Nil(t, batch.Rows[1]["score"])

	// back to CSV
	var buf bytes.Buffer
	require.NoError(t, NewChunkWriter(&buf).Write(batch))
	assert.Equal(t, content, buf.String())
}

func TestConvert_ParquetCompression(t *testing.T) {
	for _, name := range []string{"none", "snappy", "gzip", "brotli", "zstd", "lz4"} {
		t.Run(name, func(t *testing.T) {
			codec, err := CompressionCodec(name)
			require.NoError(t, err)

			out, err := Convert([]byte(obfuscatedCSV), format.Parquet, WithCompression(codec))
			require.NoError(t, err)

			names, err := reader.ColumnNames(out.Bytes(), format.Parquet)
			require.NoError(t, err)
			assert.Equal(t, []string{"student_id", "name", "course", "graduation_date", "email_address"}, names)
		})
	}

	_, err := CompressionCodec("lzma")
	assert.Error(t, err)
}
