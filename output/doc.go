// Package output writes obfuscated row batches and re-encodes the result.
//
// Batches are first accumulated as canonical CSV by a ChunkWriter, which
// writes the header row once and data rows for every batch:
//
//	var buf bytes.Buffer
//	w := output.NewChunkWriter(&buf)
//	for each batch {
//	    if err := w.Write(batch); err != nil {
//	        return err
//	    }
//	}
//
// Convert then re-encodes the complete CSV buffer into the target format:
//
//   - csv: returned unchanged
//   - json: JSON Lines, one object per record, keys in column order
//   - parquet: a single parquet file, schema inferred from the values
//
// # Type Handling
//
// CSV cells are text. For json and parquet, each column gets a Kind: int,
// float or bool when every non-empty cell is the canonical text of such a
// value, string otherwise. Empty cells of typed columns become null.
//
// Parquet pages are Snappy-compressed by default; see CompressionCodec and
// WithCompression for the alternatives.
package output
