package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/phrazzld/measure-api/internal/storage"
)

// MemoryObjectStorage implements storage.ObjectStorage over a map
type MemoryObjectStorage struct {
	mu      sync.Mutex
	objects map[string][]byte

	// Optional behavior overrides, consulted before the map
	PutFn    func(ctx context.Context, key, contentType string, data []byte) error
	GetFn    func(ctx context.Context, key string) ([]byte, error)
	DeleteFn func(ctx context.Context, key string) error

	// DeletedKeys records every key passed to Delete, in call order
	DeletedKeys []string
}

var _ storage.ObjectStorage = (*MemoryObjectStorage)(nil)

// NewMemoryObjectStorage creates an empty storage.
func NewMemoryObjectStorage() *MemoryObjectStorage {
	return &MemoryObjectStorage{objects: make(map[string][]byte)}
}

// Put implements storage.ObjectStorage.Put
func (s *MemoryObjectStorage) Put(ctx context.Context, key, contentType string, data []byte) error {
	if s.PutFn != nil {
		if err := s.PutFn(ctx, key, contentType, data); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

// Get implements storage.ObjectStorage.Get
func (s *MemoryObjectStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return append([]byte(nil), data...), nil
}

// Delete implements storage.ObjectStorage.Delete
func (s *MemoryObjectStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	s.DeletedKeys = append(s.DeletedKeys, key)
	s.mu.Unlock()

	if s.DeleteFn != nil {
		if err := s.DeleteFn(ctx, key); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Keys returns the stored keys in sorted order.
func (s *MemoryObjectStorage) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
