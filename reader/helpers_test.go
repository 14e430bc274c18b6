package reader

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/piiscrub/format"
)

// StudentRow is the parquet fixture used across reader tests
type StudentRow struct {
	StudentID int64   `parquet:"student_id"`
	Name      string  `parquet:"name"`
	Course    string  `parquet:"course"`
	Score     float64 `parquet:"score"`
	Active    bool    `parquet:"active"`
	Email     *string `parquet:"email_address,optional"`
}

// createParquetContent writes rows to an in-memory parquet file
func createParquetContent(t *testing.T, rows []StudentRow) []byte {
	t.Helper()

	var buf bytes.Buffer
	writer := parquet.NewGenericWriter[StudentRow](&buf)
	if len(rows) > 0 {
		_, err := writer.Write(rows)
		require.NoError(t, err, "failed to write test data")
	}
	require.NoError(t, writer.Close(), "failed to close writer")

	return buf.Bytes()
}

// readAll drains a BatchReader
func readAll(t *testing.T, content []byte, f format.Format, size int) []*Batch {
	t.Helper()

	br, err := NewBatchReader(content, f, size)
	require.NoError(t, err)

	var batches []*Batch
	for {
		batch, err := br.Next()
		if errors.Is(err, io.EOF) {
			return batches
		}
		require.NoError(t, err)
		batches = append(batches, batch)
	}
}

func strPtr(s string) *string {
	return &s
}
