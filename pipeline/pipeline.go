// Package pipeline sequences reading, obfuscation, chunked writing and
// format conversion for one file.
package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/vegasq/piiscrub/format"
	"github.com/vegasq/piiscrub/obfuscate"
	"github.com/vegasq/piiscrub/output"
	"github.com/vegasq/piiscrub/reader"
)

// Options controls one ObfuscateFile call. The zero value reads csv,
// writes the source format, uses batches of reader.DefaultBatchSize and
// the replace method.
type Options struct {
	// SourceFormat is matched case-insensitively; empty means csv.
	SourceFormat string

	// TargetFormat defaults to the source format when empty.
	TargetFormat string

	// ChunkSize is the number of records per batch.
	ChunkSize int

	// Method is the obfuscation method name; empty means replace.
	Method string

	// Compression is the parquet page codec for parquet targets.
	Compression compress.Codec

	// SaltSource overrides random_hash salts, mainly for tests.
	SaltSource obfuscate.SaltSource

	Logger hclog.Logger
}

// ObfuscateFile obfuscates fields of content and returns the encoded
// result, positioned for reading from the start.
//
// Batches are processed strictly one at a time. Any error aborts the
// whole call and no partial buffer is returned.
func ObfuscateFile(content []byte, fields []string, opts Options) (*bytes.Buffer, error) {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	source := opts.SourceFormat
	if source == "" {
		source = string(format.CSV)
	}
	src, err := format.Parse(source)
	if err != nil {
		return nil, err
	}

	method := opts.Method
	if method == "" {
		method = string(obfuscate.Replace)
	}
	obfOpts := []obfuscate.Option{obfuscate.WithLogger(logger)}
	if opts.SaltSource != nil {
		obfOpts = append(obfOpts, obfuscate.WithSaltSource(opts.SaltSource))
	}
	obf, err := obfuscate.New(method, obfOpts...)
	if err != nil {
		return nil, err
	}

	br, err := reader.NewBatchReader(content, src, opts.ChunkSize)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := output.NewChunkWriter(&buf)
	for {
		batch, err := br.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if err := obf.Obfuscate(batch, fields); err != nil {
			return nil, err
		}
		if err := writer.Write(batch); err != nil {
			return nil, fmt.Errorf("failed to write batch %d: %w", writer.Batches()+1, err)
		}
		logger.Trace("batch obfuscated", "batch", writer.Batches(), "rows", batch.Len())
	}

	target := src
	if opts.TargetFormat != "" {
		target, err = format.Parse(opts.TargetFormat)
		if err != nil {
			return nil, err
		}
	}

	logger.Debug("obfuscation complete",
		"source", src, "target", target, "method", obf.Method(),
		"batches", writer.Batches(), "rows", writer.Rows())

	if target == format.CSV {
		return &buf, nil
	}

	var convOpts []output.ConvertOption
	if opts.Compression != nil {
		convOpts = append(convOpts, output.WithCompression(opts.Compression))
	}
	out, err := output.Convert(buf.Bytes(), target, convOpts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}
