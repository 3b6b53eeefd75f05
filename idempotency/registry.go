// Package idempotency records confirmed transfers so that re-submitting a
// settlement plan never moves money twice.
//
// Keys are the stable transaction keys derived from plan id, from, to, and
// amount. The registry is consulted before a transfer is handed to the
// payment rail and written after the rail confirms it.
package idempotency

import (
	"context"
	"sync"
)

// Registry is the confirmed-transfer key set.
type Registry interface {
	// Lookup returns the recorded rail reference for key, if any.
	Lookup(ctx context.Context, key string) (reference string, ok bool, err error)
	// Record remembers a confirmed transfer. Recording the same key twice
	// is a no-op that keeps the first reference.
	Record(ctx context.Context, key, reference string) error
}

// Memory is a process-local registry.
type Memory struct {
	mu   sync.RWMutex
	keys map[string]string
}

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{keys: make(map[string]string)}
}

// Lookup implements Registry.
func (m *Memory) Lookup(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ref, ok := m.keys[key]
	return ref, ok, nil
}

// Record implements Registry.
func (m *Memory) Record(_ context.Context, key, reference string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.keys[key]; !ok {
		m.keys[key] = reference
	}
	return nil
}
