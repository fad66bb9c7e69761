package memory

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"paintbox/core"
)

// memStore keeps blobs in a process-local map. It is the default backend
// and the one tests run against.
type memStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{blobs: make(map[string][]byte)}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[key]
	if !ok {
		return nil, core.ErrKeyNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *memStore) Set(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.blobs[key] = stored
	logrus.WithFields(logrus.Fields{
		"key":         key,
		"data_length": len(data),
	}).Debug("Blob stored in memory")
	return nil
}
