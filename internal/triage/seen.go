package triage

import (
	"context"
	"sync"
)

// SeenStore is the only dedup state carried across runs. Keys are normalized URLs.
type SeenStore interface {
	Contains(ctx context.Context, url string) (bool, error)
	Add(ctx context.Context, url string) error
}

// MemorySeenStore keeps seen URLs for the lifetime of the process.
type MemorySeenStore struct {
	mu   sync.RWMutex
	urls map[string]struct{}
}

var _ SeenStore = (*MemorySeenStore)(nil)

// NewMemorySeenStore optionally pre-seeds the set.
func NewMemorySeenStore(urls ...string) *MemorySeenStore {
	s := &MemorySeenStore{urls: make(map[string]struct{}, len(urls))}
	for _, u := range urls {
		s.urls[NormalizeURL(u)] = struct{}{}
	}
	return s
}

// Contains reports whether the URL was added before.
func (s *MemorySeenStore) Contains(_ context.Context, url string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.urls[url]
	return ok, nil
}

// Add records the URL.
func (s *MemorySeenStore) Add(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls[url] = struct{}{}
	return nil
}

// Len returns the number of stored URLs.
func (s *MemorySeenStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.urls)
}
