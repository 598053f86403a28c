// Package store keeps workspace state as a flat set of keys, each holding an opaque value, in the manner of an
// editor's Memento.  Two implementations are provided: Memory, for tests and throwaway hosts, and SQLite, which keeps
// any number of named scopes in one database file.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// A Memento is a key value store.  Writes are last-writer-wins per key; there are no transactions spanning keys.
type Memento interface {
	// Get returns the value stored under key, and false if there is none.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Update replaces the value stored under key.  A nil value deletes the key.
	Update(ctx context.Context, key string, value []byte) error

	// Keys returns every key with a value, sorted.
	Keys(ctx context.Context) ([]string, error)
}

// Memory returns an empty Memento that lives in memory.
func Memory() Memento {
	return &memory{values: make(map[string][]byte)}
}

type memory struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func (m *memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (m *memory) Update(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if value == nil {
		delete(m.values, key)
		return nil
	}
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *memory) Keys(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for key := range m.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// GetJSON decodes the value stored under key into v.  It returns false, leaving v alone, if there is no value.
func GetJSON(ctx context.Context, m Memento, key string, v any) (bool, error) {
	data, ok, err := m.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	err = json.Unmarshal(data, v)
	if err != nil {
		return false, fmt.Errorf(`%w while decoding %q`, err, key)
	}
	return true, nil
}

// PutJSON stores the JSON encoding of v under key.
func PutJSON(ctx context.Context, m Memento, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf(`%w while encoding %q`, err, key)
	}
	return m.Update(ctx, key, data)
}

// Delete removes key.
func Delete(ctx context.Context, m Memento, key string) error {
	return m.Update(ctx, key, nil)
}
