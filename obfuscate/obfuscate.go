// Package obfuscate transforms the values of named columns in a row batch.
//
// Four methods are available:
//   - replace: every value becomes Placeholder ("***")
//   - mask: first and last characters kept, interior replaced by '*';
//     values of two characters or fewer are masked completely
//   - hash: hex SHA-256 of the value's UTF-8 text
//   - random_hash: SHA-256 of the value text plus a salt drawn once per
//     Obfuscate call
//
// Values that cannot be coerced to text (nil, nested structures) fall back
// to Placeholder instead of failing the batch.
package obfuscate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/vegasq/piiscrub/reader"
)

// Placeholder replaces values under the replace method and values that
// cannot be transformed.
const Placeholder = "***"

// maxSalt bounds the random_hash salt to [0, maxSalt].
const maxSalt = 99999

// Method selects the per-value transform.
type Method string

const (
	Mask       Method = "mask"
	Hash       Method = "hash"
	RandomHash Method = "random_hash"
	Replace    Method = "replace"
)

// Methods lists every supported method.
var Methods = []Method{Mask, Hash, RandomHash, Replace}

// InvalidMethodError reports an unknown obfuscation method name.
type InvalidMethodError struct {
	Method string
}

func (e *InvalidMethodError) Error() string {
	return fmt.Sprintf("invalid obfuscation method '%s' (supported: mask, hash, random_hash, replace)", e.Method)
}

// MissingFieldError reports a requested field that is not a column of the
// batch being obfuscated.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("field '%s' not found in data", e.Field)
}

// ParseMethod validates a method name. Matching is case-insensitive.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case Mask, Hash, RandomHash, Replace:
		return m, nil
	}
	return "", &InvalidMethodError{Method: s}
}

// SaltSource returns a salt in [0, n].
type SaltSource func(n int) int

// Obfuscator applies one method to batches.
//
// An Obfuscator is not safe for concurrent use when the method is
// random_hash; give each pipeline invocation its own.
type Obfuscator struct {
	method Method
	salt   SaltSource
	logger hclog.Logger
}

// Option configures an Obfuscator.
type Option func(*Obfuscator)

// WithSaltSource overrides the random salt generator.
func WithSaltSource(src SaltSource) Option {
	return func(o *Obfuscator) {
		o.salt = src
	}
}

// WithLogger sets the logger used for fallback diagnostics.
func WithLogger(logger hclog.Logger) Option {
	return func(o *Obfuscator) {
		o.logger = logger
	}
}

// New returns an Obfuscator for the named method.
func New(method string, opts ...Option) (*Obfuscator, error) {
	m, err := ParseMethod(method)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	o := &Obfuscator{
		method: m,
		salt:   func(n int) int { return rng.IntN(n + 1) },
		logger: hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = hclog.NewNullLogger()
	}
	return o, nil
}

// Method returns the configured method.
func (o *Obfuscator) Method() Method {
	return o.method
}

// Obfuscate transforms every value of each field in place.
//
// All fields are checked against the batch columns before any value is
// touched; the first missing field aborts with a *MissingFieldError and
// leaves the batch unchanged. Duplicate field names have no additional
// effect. For random_hash, one salt is drawn per call and shared by every
// value of every field.
func (o *Obfuscator) Obfuscate(batch *reader.Batch, fields []string) error {
	targets := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, field := range fields {
		if seen[field] {
			continue
		}
		seen[field] = true
		if !batch.HasColumn(field) {
			return &MissingFieldError{Field: field}
		}
		targets = append(targets, field)
	}

	transform := o.transformer()
	fallbacks := 0
	for _, row := range batch.Rows {
		for _, field := range targets {
			out, ok := transform(row[field])
			if !ok {
				fallbacks++
			}
			row[field] = out
		}
	}

	if fallbacks > 0 {
		o.logger.Debug("values replaced by placeholder", "method", o.method, "count", fallbacks)
	}
	return nil
}

// transformer returns the per-value function for one Obfuscate call. The
// boolean result is false when the value fell back to Placeholder.
func (o *Obfuscator) transformer() func(interface{}) (string, bool) {
	switch o.method {
	case Mask:
		return textTransform(MaskText)
	case Hash:
		return textTransform(HashText)
	case RandomHash:
		salt := strconv.Itoa(o.salt(maxSalt))
		return textTransform(func(s string) string {
			return HashText(s + salt)
		})
	default:
		return func(interface{}) (string, bool) {
			return Placeholder, true
		}
	}
}

func textTransform(fn func(string) string) func(interface{}) (string, bool) {
	return func(v interface{}) (string, bool) {
		s, ok := Text(v)
		if !ok {
			return Placeholder, false
		}
		return fn(s), true
	}
}

// MaskText keeps the first and last character of s and replaces every
// interior character with '*'. Strings of two characters or fewer are
// masked entirely. Length is measured in characters, not bytes.
func MaskText(s string) string {
	runes := []rune(s)
	if len(runes) <= 2 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-2) + string(runes[len(runes)-1])
}

// HashText returns the hex SHA-256 digest of s.
func HashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
