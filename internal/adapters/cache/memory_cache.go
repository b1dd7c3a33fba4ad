package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mikey/phishgard/internal/core"
	"go.uber.org/zap"
)

// memoryEntry keeps the encoded analysis so callers never share its maps
// and slices with the cache
type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCache is an in-memory implementation of the AnalysisCache interface
type MemoryCache struct {
	entries     map[string]memoryEntry
	mu          sync.RWMutex
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	now         func() time.Time
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(logger *zap.Logger, cleanupFreq time.Duration) *MemoryCache {
	cache := &MemoryCache{
		entries:     make(map[string]memoryEntry),
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
		now:         time.Now,
	}

	go runCleanup(cleanupFreq, cache.stopCh, logger, func() error {
		return cache.Cleanup(context.Background())
	})

	return cache
}

func memoryKey(userID, emailID string) string {
	return userID + "\x00" + emailID
}

// Get retrieves the analysis of an email for a user
func (c *MemoryCache) Get(ctx context.Context, userID, emailID string) (*core.StoredAnalysis, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stored, ok := c.entries[memoryKey(userID, emailID)]
	if !ok || !c.now().Before(stored.expiresAt) {
		return nil, core.ErrNotFound
	}

	var entry core.StoredAnalysis
	if err := json.Unmarshal(stored.data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return &entry, nil
}

// Set stores an analysis
func (c *MemoryCache) Set(ctx context.Context, entry *core.StoredAnalysis) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[memoryKey(entry.UserID, entry.EmailID)] = memoryEntry{data: data, expiresAt: entry.ExpiresAt}
	return nil
}

// Delete removes an analysis
func (c *MemoryCache) Delete(ctx context.Context, userID, emailID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, memoryKey(userID, emailID))
	return nil
}

// Cleanup removes expired entries
func (c *MemoryCache) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	expiredCount := 0

	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			expiredCount++
		}
	}

	c.logger.Debug("Cleaned up expired cache entries", zap.Int("expired_count", expiredCount))
	return nil
}

// Len returns the number of stored entries, expired ones included
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stop stops the background cleanup task
func (c *MemoryCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}
