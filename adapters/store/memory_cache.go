package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skyward-cloud/gatehouse/core"
	"github.com/skyward-cloud/gatehouse/ports"
)

type pendingEntry struct {
	record    core.PendingCredential
	expiresAt time.Time
}

// MemoryCredentialCache is an in-memory implementation of the credential
// cache, primarily for tests. The clock is injectable so expiry can be
// exercised without sleeping.
type MemoryCredentialCache struct {
	entries map[string]pendingEntry
	now     func() time.Time
	mu      sync.Mutex
}

// NewMemoryCredentialCache creates a new in-memory credential cache. A nil
// clock defaults to time.Now.
func NewMemoryCredentialCache(clock func() time.Time) *MemoryCredentialCache {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryCredentialCache{
		entries: make(map[string]pendingEntry),
		now:     clock,
	}
}

var _ ports.CredentialCache = (*MemoryCredentialCache)(nil)

// Put stores the credentials under a fresh one-time key.
func (c *MemoryCredentialCache) Put(ctx context.Context, creds core.Credentials, ttl time.Duration) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	key := uuid.New().String()
	c.entries[key] = pendingEntry{
		record: core.PendingCredential{
			Credentials: creds,
			CreatedAt:   now,
		},
		expiresAt: now.Add(ttl),
	}
	return key, nil
}

// Peek reads the record without consuming it.
func (c *MemoryCredentialCache) Peek(ctx context.Context, key string) (*core.PendingCredential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.live(key)
	if !ok {
		return nil, core.ErrKeyNotFound
	}
	record := entry.record
	return &record, nil
}

// Consume atomically reads and deletes the record.
func (c *MemoryCredentialCache) Consume(ctx context.Context, key string) (*core.PendingCredential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.live(key)
	if !ok {
		return nil, core.ErrKeyNotFound
	}
	delete(c.entries, key)
	record := entry.record
	return &record, nil
}

// Delete removes the record if it still exists.
func (c *MemoryCredentialCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// Len reports the number of live pending records. Test helper.
func (c *MemoryCredentialCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, entry := range c.entries {
		if !c.now().After(entry.expiresAt) {
			n++
		}
	}
	return n
}

// live returns the entry for key, dropping it if expired. Caller holds the lock.
func (c *MemoryCredentialCache) live(key string) (pendingEntry, bool) {
	entry, ok := c.entries[key]
	if !ok {
		return pendingEntry{}, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return pendingEntry{}, false
	}
	return entry, true
}
