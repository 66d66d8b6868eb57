package storage

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is a map-backed Store used in tests and as a fallback when
// no durable backend is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry

	// MaxEntries, when positive, caps the store; Set returns
	// ErrQuotaExceeded once the cap is reached. Used to exercise
	// eviction paths in tests.
	MaxEntries int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (Entry, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return Entry{}, ErrNotFound
	}
	if e.Expired(time.Now()) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.MaxEntries > 0 && len(s.entries) >= s.MaxEntries {
		if _, exists := s.entries[key]; !exists {
			return ErrQuotaExceeded
		}
	}

	e := Entry{Value: value}
	if ttl > 0 {
		e.ExpiresAt = time.Now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			delete(s.entries, k)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Close() error { return nil }

// Len returns the number of live entries; for tests.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
