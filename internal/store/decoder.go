package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// DecodeError reports a stored document that does not have the expected shape.
type DecodeError struct {
	Table  Table
	Key    string
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("decode %s/%s: %s", e.Table, e.Key, e.Reason)
	}
	return fmt.Sprintf("decode %s/%s: field %s: %s", e.Table, e.Key, e.Field, e.Reason)
}

// Decoder extracts typed attributes from a document. The first failure is
// kept and every later call becomes a no-op returning the zero value, so a
// caller can read all fields and check Err once.
type Decoder struct {
	table Table
	key   string
	path  string
	attrs map[string]any
	err   *error
}

// NewDecoder parses body as a JSON object.
func NewDecoder(table Table, key string, body []byte) *Decoder {
	var err error
	d := &Decoder{table: table, key: key, err: &err}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var attrs map[string]any
	if decErr := dec.Decode(&attrs); decErr != nil {
		d.fail("", "invalid document: "+decErr.Error())
		return d
	}
	if attrs == nil {
		d.fail("", "document is not an object")
		return d
	}
	d.attrs = attrs
	return d
}

// Err returns the first decoding failure, if any.
func (d *Decoder) Err() error { return *d.err }

func (d *Decoder) fail(field, reason string) {
	if *d.err != nil {
		return
	}
	if d.path != "" && field != "" {
		field = d.path + "." + field
	} else if d.path != "" {
		field = d.path
	}
	*d.err = &DecodeError{Table: d.table, Key: d.key, Field: field, Reason: reason}
}

func (d *Decoder) lookup(field string, required bool) (any, bool) {
	if *d.err != nil {
		return nil, false
	}
	v, ok := d.attrs[field]
	if !ok || v == nil {
		if required {
			d.fail(field, "missing")
		}
		return nil, false
	}
	return v, true
}

// String reads a required string attribute.
func (d *Decoder) String(field string) string {
	v, ok := d.lookup(field, true)
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		d.fail(field, fmt.Sprintf("expected string, got %T", v))
		return ""
	}
	return s
}

// NonEmptyString reads a required string attribute that must not be empty.
func (d *Decoder) NonEmptyString(field string) string {
	s := d.String(field)
	if *d.err == nil && s == "" {
		d.fail(field, "empty")
	}
	return s
}

// OptionalString reads a string attribute, returning "" when it is absent.
func (d *Decoder) OptionalString(field string) string {
	if _, ok := d.lookup(field, false); !ok {
		return ""
	}
	return d.String(field)
}

// Float reads a required finite number.
func (d *Decoder) Float(field string) float64 {
	v, ok := d.lookup(field, true)
	if !ok {
		return 0
	}
	n, ok := v.(json.Number)
	if !ok {
		d.fail(field, fmt.Sprintf("expected number, got %T", v))
		return 0
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		d.fail(field, fmt.Sprintf("not a finite number: %s", n))
		return 0
	}
	return f
}

// OptionalInt reads an integer attribute, returning 0 when it is absent.
func (d *Decoder) OptionalInt(field string) int64 {
	v, ok := d.lookup(field, false)
	if !ok {
		return 0
	}
	n, ok := v.(json.Number)
	if !ok {
		d.fail(field, fmt.Sprintf("expected number, got %T", v))
		return 0
	}
	i, err := n.Int64()
	if err != nil {
		d.fail(field, fmt.Sprintf("not an integer: %s", n))
		return 0
	}
	return i
}

// OptionalTime reads an RFC 3339 timestamp, returning the zero time when absent.
func (d *Decoder) OptionalTime(field string) time.Time {
	s := d.OptionalString(field)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		d.fail(field, "invalid timestamp: "+s)
		return time.Time{}
	}
	return t
}

// List returns one Decoder per element of a list of objects. An absent list
// decodes as empty.
func (d *Decoder) List(field string) []*Decoder {
	v, ok := d.lookup(field, false)
	if !ok {
		return nil
	}
	elems, ok := v.([]any)
	if !ok {
		d.fail(field, fmt.Sprintf("expected list, got %T", v))
		return nil
	}
	out := make([]*Decoder, 0, len(elems))
	for i, e := range elems {
		path := fmt.Sprintf("%s[%d]", field, i)
		if d.path != "" {
			path = d.path + "." + path
		}
		sub := &Decoder{table: d.table, key: d.key, path: path, err: d.err}
		attrs, ok := e.(map[string]any)
		if !ok {
			sub.fail("", fmt.Sprintf("expected object, got %T", e))
			return nil
		}
		sub.attrs = attrs
		out = append(out, sub)
	}
	return out
}
