package content

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"securetransfer/internal/transfer"
	"securetransfer/pkg/platform/sentinel"
)

// MemoryStore is a ContentStore for tests and single-process demos.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) StoreRaw(_ context.Context, originalName string, data []byte) (string, error) {
	return s.put(uuid.NewString()+"-"+sanitize(originalName), data), nil
}

func (s *MemoryStore) LoadRaw(_ context.Context, ref string) ([]byte, error) {
	return s.get(ref)
}

func (s *MemoryStore) StoreDecrypted(_ context.Context, data []byte, originalName string) (string, error) {
	return s.put(decryptedPrefix+uuid.NewString()+"-"+sanitize(originalName), data), nil
}

func (s *MemoryStore) LoadDecrypted(_ context.Context, ref string) ([]byte, error) {
	return s.get(ref)
}

// Put replaces the bytes under ref. Tests use it to corrupt stored content.
func (s *MemoryStore) Put(ref string, data []byte) {
	s.put(ref, data)
}

func (s *MemoryStore) put(ref string, data []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[ref] = bytes.Clone(data)
	return ref
}

func (s *MemoryStore) get(ref string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[ref]
	if !ok {
		return nil, fmt.Errorf("content %q not found: %w", ref, sentinel.ErrNotFound)
	}
	return bytes.Clone(data), nil
}

var _ transfer.ContentStore = (*MemoryStore)(nil)
