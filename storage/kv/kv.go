// Package kv is the on-device key-value storage behind the local store.
package kv

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrNotFound         = errors.New("kv: key not found")
	ErrWatchUnsupported = errors.New("kv: backend cannot report changes")
)

// Backend stores opaque values under string keys.
type Backend interface {
	// Get returns ErrNotFound when key holds nothing.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Watcher is implemented by backends that can report changes made by other writers to the given keys.
// Changes made through the same Backend value are not reported.
// Watch blocks until ctx is done.
type Watcher interface {
	Watch(ctx context.Context, keys []string, fn func(key string)) error
}

// Watch calls fn for external changes of keys if b supports it, else returns ErrWatchUnsupported.
func Watch(ctx context.Context, b Backend, keys []string, fn func(key string)) error {
	w, ok := b.(Watcher)
	if !ok {
		return ErrWatchUnsupported
	}
	return w.Watch(ctx, keys, fn)
}

// Memory is an in-memory Backend.
type Memory struct {
	mu    sync.RWMutex
	table map[string][]byte
}

var _ Backend = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{table: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.table[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.table[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Close() error { return nil }

func keySet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}
