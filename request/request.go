// Package request parses obfuscation request envelopes.
//
// An envelope is a JSON object naming the file to obfuscate and the
// fields to obfuscate:
//
//	{
//	    "file_to_obfuscate": "s3://my_bucket/new_data/file1.csv",
//	    "pii_fields": ["name", "email_address"]
//	}
package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Request is a parsed envelope.
type Request struct {
	Location Location
	Fields   []string
}

// Location addresses an object as scheme://bucket/key.
type Location struct {
	Scheme string
	Bucket string
	Key    string
}

func (l Location) String() string {
	if l.Scheme == "" {
		return l.Bucket + "/" + l.Key
	}
	return l.Scheme + "://" + l.Bucket + "/" + l.Key
}

// ValidationError reports a malformed or incomplete envelope.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := "invalid request"
	if e.Field != "" {
		msg += fmt.Sprintf(": '%s'", e.Field)
	}
	if e.Reason != "" {
		msg += " " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ErrMalformedJSON is wrapped by the ValidationError returned for input
// that is not valid JSON.
var ErrMalformedJSON = errors.New("malformed JSON")

type envelope struct {
	FileToObfuscate *json.RawMessage `json:"file_to_obfuscate"`
	PIIFields       *json.RawMessage `json:"pii_fields"`
}

// Parse decodes and validates an envelope.
func Parse(input string) (*Request, error) {
	var env envelope
	if err := json.Unmarshal([]byte(input), &env); err != nil {
		return nil, &ValidationError{Err: fmt.Errorf("%w: %v", ErrMalformedJSON, err)}
	}

	if env.FileToObfuscate == nil {
		return nil, &ValidationError{Field: "file_to_obfuscate", Reason: "is required"}
	}
	if env.PIIFields == nil {
		return nil, &ValidationError{Field: "pii_fields", Reason: "is required"}
	}

	var locator string
	if err := json.Unmarshal(*env.FileToObfuscate, &locator); err != nil {
		return nil, &ValidationError{Field: "file_to_obfuscate", Reason: "must be a string"}
	}
	loc, err := ParseLocation(locator)
	if err != nil {
		return nil, err
	}

	var fields []string
	if err := json.Unmarshal(*env.PIIFields, &fields); err != nil {
		return nil, &ValidationError{Field: "pii_fields", Reason: "must be an array of strings"}
	}

	return &Request{Location: loc, Fields: fields}, nil
}

// ParseLocation splits scheme://bucket/key. The scheme is optional; the
// bucket and key are not.
func ParseLocation(locator string) (Location, error) {
	var loc Location
	rest := strings.TrimSpace(locator)
	if scheme, after, ok := strings.Cut(rest, "://"); ok {
		loc.Scheme = scheme
		rest = after
	}

	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return Location{}, &ValidationError{
			Field:  "file_to_obfuscate",
			Reason: fmt.Sprintf("must look like scheme://bucket/key, got '%s'", locator),
		}
	}
	loc.Bucket = bucket
	loc.Key = key
	return loc, nil
}

// Encode renders a request back to envelope JSON.
func (r *Request) Encode() (string, error) {
	fields := r.Fields
	if fields == nil {
		fields = []string{}
	}
	b, err := json.Marshal(map[string]interface{}{
		"file_to_obfuscate": r.Location.String(),
		"pii_fields":        fields,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
