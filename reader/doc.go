// Package reader turns raw csv, json or parquet content into a lazy
// sequence of fixed-size row batches.
//
// Batches bound memory use: only one batch of records is materialized at
// a time, whatever the size of the input.
//
// # Basic Usage
//
//	br, err := reader.NewBatchReader(content, format.CSV, 5000)
//	if err != nil {
//	    return err
//	}
//
//	for {
//	    batch, err := br.Next()
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(batch.Columns, batch.Len())
//	}
//
// # Formats
//
//   - csv: the header line names the columns of every batch; quoting
//     follows encoding/csv.
//   - json: a JSON array of flat objects, or concatenated objects (JSON
//     Lines). Objects are pulled one at a time; the first object's key
//     order is the column order.
//   - parquet: rows are read through github.com/parquet-go/parquet-go and
//     converted to row-oriented records.
//
// Malformed content yields a *ParseError.
//
// # Schema Introspection
//
//	infos, err := reader.ExtractSchemaInfo(content, format.Parquet)
//	for _, info := range infos {
//	    fmt.Printf("%s: %s\n", info.Name, info.Type)
//	}
package reader
