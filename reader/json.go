package reader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/vegasq/piiscrub/format"
)

// record is one decoded JSON object with its key order preserved.
type record struct {
	keys   []string
	values map[string]interface{}
}

// jsonCursor pulls one object at a time from either a JSON array of
// objects or a stream of concatenated objects (JSON Lines).
type jsonCursor struct {
	dec     *json.Decoder
	started bool
	array   bool
	done    bool
	index   int
}

func newJSONCursor(r io.Reader) *jsonCursor {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &jsonCursor{dec: dec}
}

// Next returns the next object, or io.EOF after the last one.
func (c *jsonCursor) Next() (*record, error) {
	if c.done {
		return nil, io.EOF
	}

	if !c.started {
		c.started = true
		tok, err := c.dec.Token()
		if err != nil {
			c.done = true
			if errors.Is(err, io.EOF) {
				return nil, errEmptyInput
			}
			return nil, err
		}
		switch tok {
		case json.Delim('['):
			c.array = true
		case json.Delim('{'):
			return c.readObject()
		default:
			c.done = true
			return nil, fmt.Errorf("expected array or object, got %v", tok)
		}
	}

	if c.array {
		if !c.dec.More() {
			c.done = true
			if _, err := c.token(); err != nil {
				return nil, err
			}
			if _, err := c.dec.Token(); !errors.Is(err, io.EOF) {
				return nil, errors.New("unexpected content after array")
			}
			return nil, io.EOF
		}
		if err := c.expectObject(); err != nil {
			c.done = true
			return nil, err
		}
		return c.readObject()
	}

	tok, err := c.dec.Token()
	if err != nil {
		c.done = true
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	if tok != json.Delim('{') {
		c.done = true
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	return c.readObject()
}

// token reads the next token inside an open array or object, where the
// end of input means the content was cut short.
func (c *jsonCursor) token() (json.Token, error) {
	tok, err := c.dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, io.ErrUnexpectedEOF
	}
	return tok, err
}

func (c *jsonCursor) expectObject() error {
	tok, err := c.token()
	if err != nil {
		return err
	}
	if tok != json.Delim('{') {
		return fmt.Errorf("array element %d is not an object", c.index+1)
	}
	return nil
}

// readObject consumes key/value pairs after an opening brace.
func (c *jsonCursor) readObject() (*record, error) {
	c.index++
	rec := &record{values: make(map[string]interface{})}

	for c.dec.More() {
		tok, err := c.token()
		if err != nil {
			c.done = true
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			c.done = true
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}

		var raw json.RawMessage
		if err := c.dec.Decode(&raw); err != nil {
			c.done = true
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if _, dup := rec.values[key]; !dup {
			rec.keys = append(rec.keys, key)
		}
		rec.values[key], err = scalarValue(raw)
		if err != nil {
			c.done = true
			return nil, err
		}
	}

	// closing brace
	if _, err := c.token(); err != nil {
		c.done = true
		return nil, err
	}
	return rec, nil
}

// scalarValue maps a raw JSON value to a row value. Nested objects and
// arrays are kept as their compact JSON text.
func scalarValue(raw json.RawMessage) (interface{}, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty value")
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, err
		}
		return s, nil
	case 'n':
		return nil, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return nil, err
		}
		return b, nil
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return nil, err
		}
		return buf.String(), nil
	default:
		return json.Number(string(trimmed)), nil
	}
}

// jsonBatchReader groups cursor objects into batches of up to size records.
type jsonBatchReader struct {
	cursor  *jsonCursor
	size    int
	columns []string
	known   map[string]bool
	started bool
}

func newJSONBatchReader(content []byte, size int) *jsonBatchReader {
	return &jsonBatchReader{
		cursor: newJSONCursor(bytes.NewReader(content)),
		size:   size,
	}
}

func (j *jsonBatchReader) Next() (*Batch, error) {
	var batch *Batch

	for batch == nil || len(batch.Rows) < j.size {
		rec, err := j.cursor.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &ParseError{Format: format.JSON, Record: j.cursor.index, Err: err}
		}

		if !j.started {
			if len(rec.keys) == 0 {
				return nil, &ParseError{
					Format: format.JSON,
					Record: j.cursor.index,
					Err:    errors.New("first record has no keys"),
				}
			}
			j.started = true
			j.columns = rec.keys
			j.known = make(map[string]bool, len(rec.keys))
			for _, k := range rec.keys {
				j.known[k] = true
			}
		}
		for _, k := range rec.keys {
			if !j.known[k] {
				return nil, &ParseError{
					Format: format.JSON,
					Record: j.cursor.index,
					Err:    fmt.Errorf("key %q is not present in the first record", k),
				}
			}
		}

		if batch == nil {
			batch = &Batch{Columns: j.columns, Rows: make([]map[string]interface{}, 0, min(j.size, 1024))}
		}

		row := make(map[string]interface{}, len(j.columns))
		for _, col := range j.columns {
			row[col] = rec.values[col]
		}
		batch.Rows = append(batch.Rows, row)
	}

	if batch == nil {
		return nil, io.EOF
	}
	return batch, nil
}
