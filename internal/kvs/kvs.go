// Package kvs is the client side of the distributed content-addressed
// store that holds job attributes.
//
// The lookup core depends only on Reader. Three backends are provided:
// Memory (tests and development), SQLite (single-node durable store)
// and Redis (shared store). The write side exists for seeding and
// administration; the lookup path never writes.
package kvs

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value is stored at the path.
// Callers must distinguish it from transport failures: a missing key
// is an expected condition, everything else is not.
var ErrNotFound = errors.New("kvs: not found")

// Reader is the asynchronous store read primitive. Implementations
// must be safe for concurrent use; one lookup issues all of its reads
// from separate goroutines.
type Reader interface {
	// Get retrieves the value stored at path, or ErrNotFound.
	Get(ctx context.Context, path string) ([]byte, error)
}

// Writer is the seeding/admin write primitive.
type Writer interface {
	// Put stores value at path, overwriting any existing value.
	Put(ctx context.Context, path string, value []byte) error
}

// Store combines both sides plus lifecycle.
type Store interface {
	Reader
	Writer

	// Close releases backend resources.
	Close() error
}
