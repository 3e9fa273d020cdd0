// Package cache holds the most recently encoded feed in memory.
package cache

import (
	"sync"
	"time"
)

// Feed is one complete encoded calendar. Feeds are immutable once
// stored; a refresh replaces the whole snapshot.
type Feed struct {
	Body        []byte
	GeneratedAt time.Time
}

// Store is a single-slot feed cache. Set swaps in a new snapshot
// atomically, so concurrent readers observe either the previous feed or
// the new one in full, never a partial write. There is no eviction: the
// capacity is exactly one entry, always the latest.
type Store struct {
	mu   sync.RWMutex
	feed *Feed
}

func NewStore() *Store {
	return &Store{}
}

// Set replaces the cached feed.
func (s *Store) Set(body []byte, generatedAt time.Time) {
	feed := &Feed{Body: body, GeneratedAt: generatedAt}
	s.mu.Lock()
	s.feed = feed
	s.mu.Unlock()
}

// Get returns the current feed, or ok=false if nothing was built yet.
func (s *Store) Get() (Feed, bool) {
	s.mu.RLock()
	feed := s.feed
	s.mu.RUnlock()
	if feed == nil {
		return Feed{}, false
	}
	return *feed, true
}
