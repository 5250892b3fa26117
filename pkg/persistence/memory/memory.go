package memory

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/persistence"
)

// MemoryStateStore is an in-memory implementation of IStateStore.
// This implementation is intended for TESTING ONLY.
//
// All data is stored in memory and will be lost when the process exits.
// Thread-safe using sync.RWMutex for concurrent access.
// Values are copied on the way in and out to prevent external mutation.
type MemoryStateStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

var _ persistence.IStateStore = (*MemoryStateStore)(nil)

// NewMemoryStateStore creates a new in-memory state store.
// Prints a loud warning since this should only be used for testing.
func NewMemoryStateStore() *MemoryStateStore {
	fmt.Println("⚠️  WARNING: Using in-memory state store - ALL DATA WILL BE LOST ON RESTART")
	fmt.Println("⚠️  This should ONLY be used for testing. Set AIRDROP_PERSISTENCE_TYPE=badger for production")

	return newStore()
}

// NewQuietMemoryStateStore is NewMemoryStateStore without the warning, for tests.
func NewQuietMemoryStateStore() *MemoryStateStore {
	return newStore()
}

func newStore() *MemoryStateStore {
	return &MemoryStateStore{
		data: make(map[string][]byte),
	}
}

// Get retrieves the value stored under key.
func (m *MemoryStateStore) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	value, exists := m.data[string(key)]
	if !exists {
		return nil, nil
	}
	return persistence.CopyBytes(value), nil
}

// Commit applies the batch under the write lock.
func (m *MemoryStateStore) Commit(writes []persistence.Write) error {
	return m.CompareAndCommit(nil, writes)
}

// CompareAndCommit checks reads and applies writes under one write lock.
func (m *MemoryStateStore) CompareAndCommit(reads []persistence.Read, writes []persistence.Write) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}

	for _, r := range reads {
		if !bytes.Equal(m.data[string(r.Key)], r.Value) {
			return fmt.Errorf("%w: key %x", persistence.ErrConflict, r.Key)
		}
	}

	for _, w := range writes {
		if w.IsDelete() {
			delete(m.data, string(w.Key))
			continue
		}
		m.data[string(w.Key)] = persistence.CopyBytes(w.Value)
	}

	return nil
}

// IteratePrefix walks every key under prefix in ascending order.
func (m *MemoryStateStore) IteratePrefix(prefix []byte, fn func(key, value []byte) error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return persistence.ErrClosed
	}

	type entry struct {
		key, value []byte
	}
	entries := make([]entry, 0)
	for k, v := range m.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			entries = append(entries, entry{key: []byte(k), value: persistence.CopyBytes(v)})
		}
	}
	m.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].key, entries[j].key) < 0
	})

	for _, e := range entries {
		if err := fn(e.key, e.value); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryStateStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Close marks the store closed. Idempotent.
func (m *MemoryStateStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck verifies the store is operational.
func (m *MemoryStateStore) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return persistence.ErrClosed
	}
	return nil
}
