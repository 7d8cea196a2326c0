package store

import (
	"context"
	"sync"
	"time"

	"github.com/skyward-cloud/gatehouse/core"
	"github.com/skyward-cloud/gatehouse/ports"
)

type sessionEntry struct {
	session   core.Session
	expiresAt time.Time
}

// MemorySessionStore is an in-memory implementation of the session store,
// primarily for tests.
type MemorySessionStore struct {
	entries map[string]sessionEntry
	now     func() time.Time
	mu      sync.RWMutex
}

// NewMemorySessionStore creates a new in-memory session store. A nil clock
// defaults to time.Now.
func NewMemorySessionStore(clock func() time.Time) *MemorySessionStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemorySessionStore{
		entries: make(map[string]sessionEntry),
		now:     clock,
	}
}

var _ ports.SessionStore = (*MemorySessionStore)(nil)

// Save writes the session record with the given TTL.
func (s *MemorySessionStore) Save(ctx context.Context, id string, session *core.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[id] = sessionEntry{
		session:   *session,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Load reads a session record.
func (s *MemorySessionStore) Load(ctx context.Context, id string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok || s.now().After(entry.expiresAt) {
		return nil, core.ErrNotFound
	}
	session := entry.session
	return &session, nil
}

// Delete destroys a session record.
func (s *MemorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
	return nil
}

// Len reports the number of live session records. Test helper.
func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, entry := range s.entries {
		if !s.now().After(entry.expiresAt) {
			n++
		}
	}
	return n
}
