// Package runner executes obfuscation jobs end to end: an envelope is
// parsed, the named object is read from storage, PII columns are
// optionally detected, the file is obfuscated, and the result is either
// saved next to the original or handed back to the caller.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/vegasq/piiscrub/format"
	"github.com/vegasq/piiscrub/pii"
	"github.com/vegasq/piiscrub/pipeline"
	"github.com/vegasq/piiscrub/reader"
	"github.com/vegasq/piiscrub/request"
	"github.com/vegasq/piiscrub/storage"
)

// ErrOverwriteSource is returned when the derived output key would
// replace the object being obfuscated.
var ErrOverwriteSource = errors.New("output key equals input key")

// Options configures a Runner. Zero values fall back to the pipeline
// defaults.
type Options struct {
	ChunkSize    int
	Method       string
	TargetFormat string
	Compression  compress.Codec

	// Save writes results to storage under a key derived with
	// ReplaceFrom and ReplaceTo.
	Save        bool
	ReplaceFrom string
	ReplaceTo   string

	// Detector, when set, extends each request's fields with detected
	// PII columns.
	Detector *pii.Detector

	Logger hclog.Logger
}

// Result describes one finished job.
type Result struct {
	JobID   string
	Request *request.Request

	// Fields are the fields actually obfuscated, request fields first
	Fields    []string
	Detection *pii.Detection

	Source format.Format
	Target format.Format

	// Output holds the encoded file when Save is off
	Output *bytes.Buffer

	// Saved is the written object's location when Save is on
	Saved *request.Location
}

// Message summarises the result for humans.
func (r *Result) Message() string {
	if r.Saved != nil {
		return fmt.Sprintf("Obfuscated file saved to %s", r.Saved)
	}
	return fmt.Sprintf("Obfuscated %s as %s (%d bytes)", r.Request.Location, r.Target, r.Output.Len())
}

// Runner executes jobs against a Store.
type Runner struct {
	store  *storage.Store
	opts   Options
	logger hclog.Logger
}

// New creates a Runner.
func New(store *storage.Store, opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Runner{store: store, opts: opts, logger: logger}
}

// Run executes the job described by envelope.
func (r *Runner) Run(ctx context.Context, envelope string) (*Result, error) {
	jobID := uuid.NewString()
	logger := r.logger.With("job_id", jobID)

	req, err := request.Parse(envelope)
	if err != nil {
		return nil, err
	}
	logger.Info("job started", "location", req.Location.String(), "fields", len(req.Fields))

	content, src, err := r.store.Read(req.Location.Bucket, req.Location.Key)
	if err != nil {
		return nil, err
	}

	target := src
	if r.opts.TargetFormat != "" {
		target, err = format.Parse(r.opts.TargetFormat)
		if err != nil {
			return nil, err
		}
	}

	result := &Result{JobID: jobID, Request: req, Fields: req.Fields, Source: src, Target: target}

	if r.opts.Detector != nil {
		columns, err := reader.ColumnNames(content, src)
		if err != nil {
			return nil, fmt.Errorf("failed to read columns of %s: %w", req.Location, err)
		}
		result.Detection = r.opts.Detector.Detect(ctx, columns, req.Fields)
		result.Fields = result.Detection.Fields
		logger.Debug("detection finished", "fields", strings.Join(result.Fields, ","),
			"classifier_errors", len(result.Detection.Errors))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := pipeline.ObfuscateFile(content, result.Fields, pipeline.Options{
		SourceFormat: string(src),
		TargetFormat: string(target),
		ChunkSize:    r.opts.ChunkSize,
		Method:       r.opts.Method,
		Compression:  r.opts.Compression,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	if !r.opts.Save {
		result.Output = out
		logger.Info("job finished", "target", target, "bytes", out.Len())
		return result, nil
	}

	key := OutputKey(req.Location.Key, r.opts.ReplaceFrom, r.opts.ReplaceTo, src, target)
	if key == req.Location.Key {
		return nil, fmt.Errorf("%w: %s", ErrOverwriteSource, req.Location)
	}
	if err := r.store.Write(req.Location.Bucket, key, out.Bytes()); err != nil {
		return nil, err
	}

	saved := req.Location
	saved.Key = key
	result.Saved = &saved
	logger.Info("job finished", "saved", saved.String())
	return result, nil
}

// OutputKey derives the key an obfuscated object is saved under: every
// occurrence of from is replaced with to, and the extension follows the
// target format when it differs from the source.
func OutputKey(key, from, to string, src, target format.Format) string {
	if from != "" {
		key = strings.ReplaceAll(key, from, to)
	}
	if target != src {
		key = format.ReplaceExt(key, target)
	}
	return key
}
