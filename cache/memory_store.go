package cache

import (
	"context"
	"sync"

	"weatherhub.app/metrics"
)

// MemoryStore is the default in-process entry store. Expired entries
// are retained until replaced or evicted; the cache serves them stale
// when every provider is down.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string]*Entry
	capacity int
}

// NewMemoryStore creates a store bounded to capacity entries.
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{
		data:     make(map[string]*Entry),
		capacity: capacity,
	}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.data[key]
	return entry, ok
}

// Set inserts or replaces an entry. At capacity the entry with the
// oldest InsertedAt is evicted first (FIFO by age; the working set of
// requested locations is small and slowly changing, so LRU buys nothing).
func (s *MemoryStore) Set(_ context.Context, key string, entry *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; !exists && len(s.data) >= s.capacity {
		s.evictOldestLocked()
	}
	s.data[key] = entry
}

func (s *MemoryStore) evictOldestLocked() {
	var oldestKey string
	var oldest *Entry
	for key, entry := range s.data {
		if oldest == nil || entry.InsertedAt.Before(oldest.InsertedAt) {
			oldestKey = key
			oldest = entry
		}
	}
	if oldestKey != "" {
		delete(s.data, oldestKey)
		metrics.CacheEvictions.WithLabelValues(s.Name()).Inc()
	}
}

func (s *MemoryStore) Delete(_ context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

func (s *MemoryStore) Clear(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]*Entry)
}

func (s *MemoryStore) Keys(_ context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	return keys
}

func (s *MemoryStore) Len(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
