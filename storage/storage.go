// Package storage reads and writes objects addressed by bucket and key.
//
// Buckets are top-level directories of an afero filesystem: an OS
// directory in production, an in-memory filesystem in tests.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/vegasq/piiscrub/format"
)

const (
	dirPerms  = 0o755
	filePerms = 0o644
)

// ErrNotFound is returned when the bucket or key does not exist.
var ErrNotFound = errors.New("object not found")

// Store is an object store over an afero filesystem.
type Store struct {
	fs     afero.Fs
	logger hclog.Logger
}

// New returns a Store over fs.
func New(fs afero.Fs, logger hclog.Logger) *Store {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Store{fs: fs, logger: logger}
}

// NewOS returns a Store rooted at the OS directory root.
func NewOS(root string, logger hclog.Logger) *Store {
	return New(afero.NewBasePathFs(afero.NewOsFs(), root), logger)
}

// Read loads the object at bucket/key and derives its format from the
// key's extension. The format is checked before the object is read.
func (s *Store) Read(bucket, key string) ([]byte, format.Format, error) {
	f, err := format.FromKey(key)
	if err != nil {
		return nil, "", err
	}

	p, err := objectPath(bucket, key)
	if err != nil {
		return nil, "", err
	}

	content, err := afero.ReadFile(s.fs, p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, key)
		}
		return nil, "", fmt.Errorf("failed to read %s/%s: %w", bucket, key, err)
	}

	s.logger.Debug("read object", "bucket", bucket, "key", key, "bytes", len(content), "format", f)
	return content, f, nil
}

// Write stores content at bucket/key, creating intermediate key
// directories. The bucket must already exist.
func (s *Store) Write(bucket, key string, content []byte) error {
	if _, err := format.FromKey(key); err != nil {
		return err
	}

	p, err := objectPath(bucket, key)
	if err != nil {
		return err
	}

	if ok, err := afero.DirExists(s.fs, bucket); err != nil || !ok {
		return fmt.Errorf("%w: bucket %s", ErrNotFound, bucket)
	}
	if err := s.fs.MkdirAll(path.Dir(p), dirPerms); err != nil {
		return fmt.Errorf("failed to create %s: %w", path.Dir(p), err)
	}
	if err := afero.WriteFile(s.fs, p, content, filePerms); err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", bucket, key, err)
	}

	s.logger.Debug("wrote object", "bucket", bucket, "key", key, "bytes", len(content))
	return nil
}

// objectPath joins bucket and key, refusing keys that escape the bucket.
func objectPath(bucket, key string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", fmt.Errorf("invalid bucket name '%s'", bucket)
	}
	clean := path.Clean("/" + key)
	if clean == "/" || strings.HasPrefix(path.Clean(key), "..") {
		return "", fmt.Errorf("invalid key '%s'", key)
	}
	return path.Join(bucket, clean), nil
}
