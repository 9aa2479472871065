package eligibility

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Cache stores eligibility results. Implementations are advisory: a miss or
// a failure only costs a recomputation.
type Cache interface {
	Get(ctx context.Context, key string) (*Result, bool)
	Set(ctx context.Context, key string, r Result)
	// InvalidatePrefix drops every entry whose key starts with prefix.
	InvalidatePrefix(ctx context.Context, prefix string) error
	// Generation returns the workspace's current generation. Keys embed it,
	// so entries written under an older generation are never read again.
	Generation(ctx context.Context, workspaceID string) (uint64, error)
	// Advance moves the workspace to a new generation.
	Advance(ctx context.Context, workspaceID string) error
}

const (
	keyPrefix = "elig:"
	genPrefix = "elig:gen:"
)

// WorkspacePrefix is the key prefix shared by every entry of a workspace.
func WorkspacePrefix(workspaceID string) string {
	return keyPrefix + workspaceID + ":"
}

// Key builds the cache key for (workspace, model, plan) under generation gen.
func Key(workspaceID, modelID string, plan Plan, gen uint64) string {
	return WorkspacePrefix(workspaceID) + "g" + strconv.FormatUint(gen, 10) + ":" + modelID + ":" + string(plan)
}

// GenerationKey is where a shared cache keeps a workspace's generation.
func GenerationKey(workspaceID string) string {
	return genPrefix + workspaceID
}

type memoryEntry struct {
	result    Result
	expiresAt time.Time
}

// MemoryCache is an in-process Cache with a fixed TTL. Expired entries are
// dropped lazily on read and by Purge.
type MemoryCache struct {
	mu          sync.RWMutex
	entries     map[string]memoryEntry
	generations map[string]uint64
	ttl         time.Duration
	now         func() time.Time
}

func NewMemoryCache(ttl time.Duration, now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{
		entries:     make(map[string]memoryEntry),
		generations: make(map[string]uint64),
		ttl:         ttl,
		now:         now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*Result, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	r := e.result
	r.Reasons = append([]string(nil), e.result.Reasons...)
	return &r, true
}

func (c *MemoryCache) Set(_ context.Context, key string, r Result) {
	if c.ttl <= 0 {
		return
	}
	r.Reasons = append([]string(nil), r.Reasons...)
	c.mu.Lock()
	c.entries[key] = memoryEntry{result: r, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *MemoryCache) InvalidatePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

func (c *MemoryCache) Generation(_ context.Context, workspaceID string) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generations[workspaceID], nil
}

func (c *MemoryCache) Advance(_ context.Context, workspaceID string) error {
	c.mu.Lock()
	c.generations[workspaceID]++
	c.mu.Unlock()
	return nil
}

// Purge removes expired entries and returns how many were dropped.
func (c *MemoryCache) Purge() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
