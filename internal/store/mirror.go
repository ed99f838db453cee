package store

import (
	"context"
	"io"
	"sort"
	"sync"
)

// Mirror keeps a copy of store objects, keyed by hex digest.
type Mirror interface {
	Has(ctx context.Context, key string) (bool, error)
	// Put stores body under key unless key already exists.
	Put(ctx context.Context, key string, body io.ReadSeeker, size int64) error
}

// MemoryMirror is an in-process Mirror.
type MemoryMirror struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{objects: make(map[string][]byte)}
}

func (m *MemoryMirror) Has(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *MemoryMirror) Put(_ context.Context, key string, body io.ReadSeeker, _ int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		m.objects[key] = data
	}
	return nil
}

// Delete drops key.
func (m *MemoryMirror) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
}

// Keys returns the stored keys in order.
func (m *MemoryMirror) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
