package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/lumapix/lumapix/pkg/api"
)

// NewMemoryBlobStore creates an in-memory BlobStore for tests and local
// development.
func NewMemoryBlobStore() BlobStore {
	return &memoryBlobStore{
		objects: make(map[string][]byte),
	}
}

var _ BlobStore = (*memoryBlobStore)(nil)

type memoryBlobStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func (s *memoryBlobStore) Save(_ context.Context, key string, data []byte) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *memoryBlobStore) Find(_ context.Context, key string) ([]byte, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, api.ErrNotFound)
	}

	return append([]byte(nil), data...), nil
}

func (s *memoryBlobStore) Replace(ctx context.Context, key string, data []byte) error {
	return s.Save(ctx, key, data)
}

func (s *memoryBlobStore) Delete(_ context.Context, key string) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, key)
	return nil
}
