package cache

import (
	"context"
	"sync"
	"time"

	"github.com/fieldops/fault-ticket-service/internal/domain"
)

// DRCache stores resolved drop metadata keyed by normalized DR number.
type DRCache interface {
	Get(ctx context.Context, drNumber string) (*domain.DropRecord, bool)
	Set(ctx context.Context, drNumber string, record *domain.DropRecord)
	Delete(ctx context.Context, drNumber string)
	Clear(ctx context.Context)
}

type memoryEntry struct {
	record   *domain.DropRecord
	storedAt time.Time
}

// MemoryDRCache is a process-wide cache bounded by entry count and age.
// DR metadata changes as builds progress, so entries expire.
type MemoryDRCache struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewMemoryDRCache builds a bounded cache. A ttl of zero disables expiry; a
// maxEntries of zero or less falls back to a sane default.
func NewMemoryDRCache(ttl time.Duration, maxEntries int) *MemoryDRCache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &MemoryDRCache{
		entries:    make(map[string]memoryEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the cached record when present and unexpired.
func (c *MemoryDRCache) Get(_ context.Context, drNumber string) (*domain.DropRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[drNumber]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, drNumber)
		return nil, false
	}
	return cloneDrop(entry.record), true
}

// Set stores a record, evicting the oldest entry once the cache is full.
func (c *MemoryDRCache) Set(_ context.Context, drNumber string, record *domain.DropRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[drNumber]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[drNumber] = memoryEntry{record: cloneDrop(record), storedAt: c.now()}
}

// Delete removes a single entry.
func (c *MemoryDRCache) Delete(_ context.Context, drNumber string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, drNumber)
}

// Clear drops all entries.
func (c *MemoryDRCache) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
}

// Len reports the number of cached entries, expired or not.
func (c *MemoryDRCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryDRCache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.storedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.storedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func cloneDrop(record *domain.DropRecord) *domain.DropRecord {
	if record == nil {
		return nil
	}
	clone := *record
	return &clone
}
