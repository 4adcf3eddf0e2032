package blobstore

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// Memory keeps blobs in process memory
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte

	// FailRemove, when set, is returned by every Remove call.
	FailRemove error
}

// NewMemory returns an empty Memory store
func NewMemory() *Memory {
	return &Memory{objects: map[string][]byte{}}
}

func (m *Memory) Bucket() string { return "memory" }

func (m *Memory) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = buf.Bytes()
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRemove != nil {
		return m.FailRemove
	}
	if _, ok := m.objects[key]; !ok {
		return ErrNotFound
	}
	delete(m.objects, key)
	return nil
}

// Has reports whether key is stored
func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// Len returns the number of stored objects
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
