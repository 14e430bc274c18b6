package pipeline

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/piiscrub/format"
	"github.com/vegasq/piiscrub/obfuscate"
	"github.com/vegasq/piiscrub/reader"
)

const testFileContent = "student_id,name,course,graduation_date,email_address\n" +
	"1234,John Smith,Software,2024-03-31,j.smith@email.com\n" +
	"5678,Steve Lee,DE,2024-06-31,sl123@email.com\n"

var piiFields = []string{"name", "email_address"}

func TestObfuscateFile_CSVReplace(t *testing.T) {
	out, err := ObfuscateFile([]byte(testFileContent), piiFields, Options{})
	require.NoError(t, err)

	want := "student_id,name,course,graduation_date,email_address\n" +
		"1234,***,Software,2024-03-31,***\n" +
		"5678,***,DE,2024-06-31,***\n"
	assert.Equal(t, want, out.String())
}

func TestObfuscateFile_JSONOutput(t *testing.T) {
	out, err := ObfuscateFile([]byte(testFileContent), piiFields, Options{TargetFormat: "json"})
	require.NoError(t, err)

	scanner := bufio.NewScanner(out)
	var records []map[string]interface{}
	for scanner.Scan() {
		var obj map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &obj))
		records = append(records, obj)
	}
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, "***", rec["name"])
		assert.Equal(t, "***", rec["email_address"])
		assert.Len(t, rec, 5)
	}
	assert.Equal(t, "Software", records[0]["course"])
}

func TestObfuscateFile_UnsupportedSource(t *testing.T) {
	_, err := ObfuscateFile([]byte("<xml/>"), piiFields, Options{SourceFormat: "xml"})

	var ufe *format.UnsupportedFormatError
	require.ErrorAs(t, err, &ufe)
	assert.Equal(t, "xml", ufe.Format)
}

func TestObfuscateFile_UnsupportedTarget(t *testing.T) {
	out, err := ObfuscateFile([]byte(testFileContent), piiFields, Options{TargetFormat: "xlsx"})

	var ufe *format.UnsupportedFormatError
	require.ErrorAs(t, err, &ufe)
	assert.Nil(t, out, "no partial output on failure")
}

func TestObfuscateFile_SourceFormatCase(t *testing.T) {
	out, err := ObfuscateFile([]byte(testFileContent), piiFields, Options{SourceFormat: "CSV"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "1234,***,Software")
}

func TestObfuscateFile_ErrorKinds(t *testing.T) {
	tests := []struct {
		name    string
		content string
		fields  []string
		opts    Options
		check   func(t *testing.T, err error)
	}{
		{
			name:    "missing field",
			content: testFileContent,
			fields:  []string{"name", "phone_number"},
			check: func(t *testing.T, err error) {
				var mfe *obfuscate.MissingFieldError
				require.ErrorAs(t, err, &mfe)
				assert.Equal(t, "phone_number", mfe.Field)
			},
		},
		{
			name:    "invalid method",
			content: testFileContent,
			fields:  piiFields,
			opts:    Options{Method: "scramble"},
			check: func(t *testing.T, err error) {
				var ime *obfuscate.InvalidMethodError
				require.ErrorAs(t, err, &ime)
			},
		},
		{
			name:    "malformed csv",
			content: "a,b\n1,2,3\n",
			fields:  []string{"a"},
			check: func(t *testing.T, err error) {
				var pe *reader.ParseError
				require.ErrorAs(t, err, &pe)
			},
		},
		{
			name:    "malformed json",
			content: `[{"name": "x"},`,
			fields:  []string{"name"},
			opts:    Options{SourceFormat: "json"},
			check: func(t *testing.T, err error) {
				var pe *reader.ParseError
				require.ErrorAs(t, err, &pe)
			},
		},
		{
			name:    "truncated json record",
			content: `[{"name": "a", "email": "x"}, {"name": "b", "email": `,
			fields:  []string{"name"},
			opts:    Options{SourceFormat: "json"},
			check: func(t *testing.T, err error) {
				var pe *reader.ParseError
				require.ErrorAs(t, err, &pe)
				assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
			},
		},
		{
			name:    "json array without closing bracket",
			content: `[{"name": "a"}`,
			fields:  []string{"name"},
			opts:    Options{SourceFormat: "json", ChunkSize: 1},
			check: func(t *testing.T, err error) {
				var pe *reader.ParseError
				require.ErrorAs(t, err, &pe)
			},
		},
		{
			name:    "empty first json record",
			content: `[{}, {"a": "secret", "b": "x"}]`,
			fields:  []string{"a"},
			opts:    Options{SourceFormat: "json"},
			check: func(t *testing.T, err error) {
				var pe *reader.ParseError
				require.ErrorAs(t, err, &pe)
			},
		},
		{
			name:    "missing field in later batch",
			content: `{"name": "a", "email": "x"}` + "\n" + `{"name": "b"}` + "\n",
			fields:  []string{"email"},
			opts:    Options{SourceFormat: "json", ChunkSize: 1},
			check: func(t *testing.T, err error) {
				// the second record lacks a value but keeps the column
				require.NoError(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ObfuscateFile([]byte(tt.content), tt.fields, tt.opts)
			tt.check(t, err)
			if err != nil {
				assert.Nil(t, out)
			}
		})
	}
}

func TestObfuscateFile_Determinism(t *testing.T) {
	for _, method := range []string{"replace", "mask", "hash"} {
		t.Run(method, func(t *testing.T) {
			first, err := ObfuscateFile([]byte(testFileContent), piiFields, Options{Method: method})
			require.NoError(t, err)
			second, err := ObfuscateFile([]byte(testFileContent), piiFields, Options{Method: method})
			require.NoError(t, err)
			assert.Equal(t, first.String(), second.String())
		})
	}
}

func TestObfuscateFile_MaskAndHashValues(t *testing.T) {
	out, err := ObfuscateFile([]byte(testFileContent), []string{"email_address"}, Options{Method: "mask"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "j"+strings.Repeat("*", 15)+"m")

	out, err = ObfuscateFile([]byte(testFileContent), []string{"email_address"}, Options{Method: "hash"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), obfuscate.HashText("j.smith@email.com"))
}

func TestObfuscateFile_RandomHashAcrossInvocations(t *testing.T) {
	read := func() []string {
		out, err := ObfuscateFile([]byte(testFileContent), []string{"name"}, Options{Method: "random_hash"})
		require.NoError(t, err)
		records, err := csv.NewReader(out).ReadAll()
		require.NoError(t, err)
		return records[1]
	}

	differ := false
	for attempt := 0; attempt < 5 && !differ; attempt++ {
		first, second := read(), read()
		assert.Len(t, first[1], 64)
		assert.Len(t, second[1], 64)
		differ = first[1] != second[1]
	}
	assert.True(t, differ)
}

func TestObfuscateFile_ChunkingInvariance(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("id,name,email\n")
	const records = 23
	for i := 0; i < records; i++ {
		fmt.Fprintf(&sb, "%d,name %d,user%d@email.com\n", i, i, i)
	}
	content := []byte(sb.String())

	for _, method := range []string{"replace", "mask", "hash"} {
		t.Run(method, func(t *testing.T) {
			var outputs []string
			for _, size := range []int{1, 5, records, 5000} {
				out, err := ObfuscateFile(content, []string{"name", "email"}, Options{Method: method, ChunkSize: size})
				require.NoError(t, err)
				outputs = append(outputs, out.String())
			}
			for _, o := range outputs[1:] {
				assert.Equal(t, outputs[0], o)
			}
			assert.Equal(t, 1, strings.Count(outputs[0], "id,name,email"), "header written once")
		})
	}
}

func TestObfuscateFile_RandomHashSaltPerBatch(t *testing.T) {
	salt := 0
	out, err := ObfuscateFile([]byte(testFileContent), []string{"name"}, Options{
		Method:    "random_hash",
		ChunkSize: 1,
		SaltSource: func(int) int {
			salt++
			return salt
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, salt, "one salt per batch")
	assert.Contains(t, out.String(), obfuscate.HashText("John Smith1"))
	assert.Contains(t, out.String(), obfuscate.HashText("Steve Lee2"))
}

func TestObfuscateFile_RoundTripJSON(t *testing.T) {
	out, err := ObfuscateFile([]byte(testFileContent), piiFields, Options{TargetFormat: "json"})
	require.NoError(t, err)

	original, err := csv.NewReader(strings.NewReader(testFileContent)).ReadAll()
	require.NoError(t, err)
	header := original[0]

	br, err := reader.NewBatchReader(out.Bytes(), format.JSON, 100)
	require.NoError(t, err)
	batch, err := br.Next()
	require.NoError(t, err)

	assert.Equal(t, header, batch.Columns)
	require.Equal(t, len(original)-1, batch.Len())
	for i, row := range batch.Rows {
		for j, col := range header {
			got, ok := obfuscate.Text(row[col])
			require.True(t, ok)
			if col == "name" || col == "email_address" {
				assert.Equal(t, "***", got)
			} else {
				assert.Equal(t, original[i+1][j], got)
			}
		}
	}
}

func TestObfuscateFile_JSONSource(t *testing.T) {
	content := `[
		{"student_id": 1234, "name": "John Smith", "email_address": "j.smith@email.com"},
		{"student_id": 5678, "name": "Steve Lee", "email_address": "sl123@email.com"}
	]`

	out, err := ObfuscateFile([]byte(content), piiFields, Options{SourceFormat: "json", ChunkSize: 1})
	require.NoError(t, err)

	want := `{"student_id":1234,"name":"***","email_address":"***"}` + "\n" +
		`{"student_id":5678,"name":"***","email_address":"***"}` + "\n"
	assert.Equal(t, want, out.String())
}

func TestObfuscateFile_ParquetSource(t *testing.T) {
	type Row struct {
		StudentID int64  `parquet:"student_id"`
		Name      string `parquet:"name"`
		Email     string `parquet:"email_address"`
	}

	var src bytes.Buffer
	writer := parquet.NewGenericWriter[Row](&src)
	_, err := writer.Write([]Row{
		{StudentID: 1234, Name: "John Smith", Email: "j.smith@email.com"},
		{StudentID: 5678, Name: "Steve Lee", Email: "sl123@email.com"},
	})
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	out, err := ObfuscateFile(src.Bytes(), piiFields, Options{SourceFormat: "parquet", TargetFormat: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "student_id,name,email_address\n1234,***,***\n5678,***,***\n", out.String())

	pq, err := ObfuscateFile(src.Bytes(), piiFields, Options{SourceFormat: "parquet", ChunkSize: 1})
	require.NoError(t, err)

	br, err := reader.NewBatchReader(pq.Bytes(), format.Parquet, 10)
	require.NoError(t, err)
	batch, err := br.Next()
	require.NoError(t, err)
	require.Equal(t, 2, batch.Len())
	assert.Equal(t, "***", batch.Rows[1]["name"])
	assert.Equal(t, int64(5678), batch.Rows[1]["student_id"])
}
