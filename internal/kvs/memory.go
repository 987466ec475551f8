package kvs

import (
	"context"
	"sync"
)

// Memory is an in-process Store for tests and development.
// Values are copied on the way in and out so callers cannot alias the
// stored bytes.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get retrieves a copy of the value stored at path.
func (m *Memory) Get(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[path]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Put stores a copy of value at path.
func (m *Memory) Put(ctx context.Context, path string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[path] = stored
	return nil
}

// Close is a no-op for the memory backend.
func (m *Memory) Close() error { return nil }
