package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/virion-labs/onboardflow/pkg/models"
)

// sweepSchedule is how often expired entries are collected. Lookups check
// expiry themselves, so the sweep only bounds memory, never correctness.
const sweepSchedule = "@every 5m"

// MemoryCache is a process-local interaction cache for tests and
// single-instance deployments. Entries carry their own expiry and a
// background cron sweep evicts the expired ones.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*models.InteractionCacheEntry
	ttl     time.Duration
	cron    *cron.Cron
	logger  *slog.Logger
}

// NewMemoryCache creates an in-memory cache and starts its expiry sweep.
func NewMemoryCache(logger *slog.Logger, ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = models.DefaultInteractionTTL
	}

	c := &MemoryCache{
		entries: make(map[string]*models.InteractionCacheEntry),
		ttl:     ttl,
		cron:    cron.New(),
		logger:  logger.With("module", "interaction_cache"),
	}

	_, err := c.cron.AddFunc(sweepSchedule, c.sweep)
	if err != nil {
		// The schedule is a constant; failing to parse it is a
		// programming error.
		panic(err)
	}

	c.cron.Start()

	return c
}

// Store writes the entry, replacing any previous one for the key.
func (c *MemoryCache) Store(_ context.Context, entry *models.InteractionCacheEntry) error {
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.ExpiresAt = now.Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[entryKey(entry.CampaignID, entry.ParticipantID)] = entry

	return nil
}

// Fetch returns the live entry for the key or ErrEntryNotFound. An
// expired entry is evicted lazily and reported as not found.
func (c *MemoryCache) Fetch(_ context.Context, campaignID, participantID string) (*models.InteractionCacheEntry, error) {
	key := entryKey(campaignID, participantID)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, ErrEntryNotFound
	}

	if entry.Expired(time.Now().UTC()) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()

		return nil, ErrEntryNotFound
	}

	return entry, nil
}

// Clear deletes the entry. Clearing a missing entry is not an error.
func (c *MemoryCache) Clear(_ context.Context, campaignID, participantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, entryKey(campaignID, participantID))

	return nil
}

// HealthCheck always succeeds for the in-memory cache.
func (c *MemoryCache) HealthCheck(_ context.Context) error {
	return nil
}

// Close stops the expiry sweep.
func (c *MemoryCache) Close(_ context.Context) error {
	c.cron.Stop()

	return nil
}

func (c *MemoryCache) sweep() {
	now := time.Now().UTC()

	c.mu.Lock()
	defer c.mu.Unlock()

	var evicted int

	for key, entry := range c.entries {
		if entry.Expired(now) {
			delete(c.entries, key)

			evicted++
		}
	}

	if evicted > 0 {
		c.logger.Debug("Swept expired interaction cache entries", "evicted", evicted)
	}
}
