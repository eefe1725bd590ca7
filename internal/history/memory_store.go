package history

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore implements Store in memory. It is used when no history path
// is configured, and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Write(_ context.Context, entries ...Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if s.has(e.ID) {
			continue
		}
		s.entries = append(s.entries, e)
	}
	return nil
}

func (s *MemoryStore) has(id string) bool {
	for _, e := range s.entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

func (s *MemoryStore) List(_ context.Context, opts QueryOptions) ([]Entry, string, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, paged := parseCursor(opts.Cursor)

	var matched []Entry
	totalCount := 0
	for _, e := range s.entries {
		if opts.SessionID != "" && e.SessionID != opts.SessionID {
			continue
		}
		if opts.Status != "" && e.Status != opts.Status {
			continue
		}
		if opts.Since != nil && e.OccurredAt.Before(*opts.Since) {
			continue
		}
		totalCount++
		if paged && !c.after(e) {
			continue
		}
		matched = append(matched, e)
	}

	sortNewestFirst(matched)

	limit := opts.limit()
	var nextCursor string
	if len(matched) > limit {
		matched = matched[:limit]
		nextCursor = cursorFor(matched[len(matched)-1])
	}
	return matched, nextCursor, totalCount, nil
}

func (s *MemoryStore) Search(_ context.Context, text string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(text)
	var matched []Entry
	for _, e := range s.entries {
		if strings.Contains(strings.ToLower(e.Query), q) {
			matched = append(matched, e)
		}
	}
	sortNewestFirst(matched)

	if limit <= 0 {
		limit = 20
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sessionID == "" {
		s.entries = nil
		return nil
	}
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.SessionID != sessionID {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return nil
}

func sortNewestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.OccurredAt.Equal(b.OccurredAt) {
			return a.ID > b.ID
		}
		return a.OccurredAt.After(b.OccurredAt)
	})
}
