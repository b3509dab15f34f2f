// Package storage holds the supporting-document collaborator: a named blob
// goes in under a path and comes back as a publicly resolvable URL.
package storage

import (
	"context"
	"sync"
)

// Store is the blob storage contract consumed by the posting lifecycle.
type Store interface {
	// Upload writes data under path and returns its public URL.
	Upload(ctx context.Context, path, contentType string, data []byte) (string, error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, path string) error
}

// Memory is an in-process Store for tests and bucket-less local runs.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Upload(ctx context.Context, path, contentType string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[path] = cp
	return "memory://" + path, nil
}

func (m *Memory) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, path)
	return nil
}

// Has reports whether an object exists. Test helper.
func (m *Memory) Has(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[path]
	return ok
}
