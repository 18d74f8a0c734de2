// Package store is a small document store with the three primitives the
// valuation engine relies on: keyed reads, conditional writes and full-table
// scans. Documents are JSON; typed decoding happens in the caller through a
// Decoder so that a malformed stored item can be reported instead of crashing
// the read path.
package store

import (
	"context"
	"errors"
)

// Table names a collection of documents.
type Table string

const (
	Users Table = "users"
	Coins Table = "coins"
)

var (
	// ErrNotFound is returned by Get when no document exists under the key.
	ErrNotFound = errors.New("item not found")
	// ErrConditionFailed is returned when a conditional write's predicate does not hold.
	ErrConditionFailed = errors.New("condition check failed")
	// ErrTypeMismatch is returned when an append targets an attribute that is not a list.
	ErrTypeMismatch = errors.New("attribute is not a list")
	// ErrUnavailable wraps infrastructure failures (I/O, locking, driver errors).
	ErrUnavailable = errors.New("store unavailable")
)

// Condition restricts a Put to a particular stored state. The zero value is an
// unconditional upsert.
type Condition struct {
	// MustExist requires a document under the key.
	MustExist bool
	// MustNotExist requires the key to be free.
	MustNotExist bool
	// VersionAttr names a numeric attribute. The write applies only when the
	// stored document is absent or its attribute is not greater than the new one.
	VersionAttr string
}

// Document is one stored item in its raw JSON form.
type Document struct {
	Table Table
	Key   string
	Body  []byte
}

// Decoder returns a Decoder over the document body.
func (d Document) Decoder() *Decoder {
	return NewDecoder(d.Table, d.Key, d.Body)
}

// Store is implemented by durable backends. Every method is individually atomic.
type Store interface {
	Get(ctx context.Context, table Table, key string) (Document, error)
	// Put marshals v to JSON and writes it under key if cond holds.
	Put(ctx context.Context, table Table, key string, v any, cond Condition) error
	// Update merges the top-level attributes of patch into an existing document.
	Update(ctx context.Context, table Table, key string, patch any) error
	// Append adds v to the end of the list attribute attr of an existing
	// document, creating the list if it is absent.
	Append(ctx context.Context, table Table, key, attr string, v any) error
	Scan(ctx context.Context, table Table) ([]Document, error)
	Close() error
}
