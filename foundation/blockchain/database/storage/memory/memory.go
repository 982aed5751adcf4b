// Package memory implements the database.Storage interface using a map.
package memory

import (
	"errors"
	"sort"
	"sync"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
)

// ErrClosed is returned when the store is used after Close.
var ErrClosed = errors.New("store closed")

// Memory represents the storage implementation for reading and writing
// key-value pairs in memory. This implements the database.Storage interface.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// New constructs a Memory value for use.
func New() *Memory {
	return &Memory{
		data: make(map[string][]byte),
	}
}

// Get returns a copy of the value for the key, or database.ErrKeyNotFound.
func (m *Memory) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	value, exists := m.data[string(key)]
	if !exists {
		return nil, database.ErrKeyNotFound
	}

	return append([]byte(nil), value...), nil
}

// Put writes the value for the key, replacing any existing value.
func (m *Memory) Put(key []byte, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if len(key) == 0 {
		return errors.New("empty key")
	}

	m.data[string(key)] = append([]byte(nil), value...)
	return nil
}

// ForEach calls the function for every key-value pair in key order.
func (m *Memory) ForEach(fn func(key []byte, value []byte) error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = append([]byte(nil), m.data[k]...)
	}
	m.mu.RUnlock()

	// The function runs without the lock so it can call back into the store.
	for i, k := range keys {
		if err := fn([]byte(k), values[i]); err != nil {
			return err
		}
	}

	return nil
}

// Flush in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Flush() error {
	return nil
}

// Close marks the store as closed. The data is kept so the same value can
// stand in for a reopened store in tests.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// Reopen makes a closed store usable again with its data intact. Only tests
// use it, to simulate a process restarting over the same store.
func (m *Memory) Reopen() *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = false
	return m
}
