package blob

import (
	"context"
	"fmt"
	"sync"
)

// MemoryArchive is an in-process Archive for tests and local runs.
type MemoryArchive struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryArchive creates an empty in-memory archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{objects: map[string][]byte{}}
}

func (a *MemoryArchive) Store(ctx context.Context, key string, data []byte, contentType string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	a.objects[key] = cp
	return nil
}

func (a *MemoryArchive) Fetch(ctx context.Context, key string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	data, ok := a.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Len reports the number of stored objects.
func (a *MemoryArchive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.objects)
}

var _ Archive = (*MemoryArchive)(nil)
