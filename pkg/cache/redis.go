package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/virion-labs/onboardflow/pkg/models"
)

const keyPrefix = "onboardflow:interaction:"

// RedisCache is the production interaction cache. Expiry is delegated to
// redis key TTLs, so entries vanish on their own without a sweep.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache connects to redis using a redis:// URL and verifies the
// connection before returning.
func NewRedisCache(ctx context.Context, logger *slog.Logger, redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if ttl <= 0 {
		ttl = models.DefaultInteractionTTL
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", opts.Addr, "db", opts.DB)

	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger.With("module", "interaction_cache"),
	}, nil
}

func entryKey(campaignID, participantID string) string {
	return keyPrefix + campaignID + ":" + participantID
}

// Store writes the entry under its key with the cache TTL.
func (c *RedisCache) Store(ctx context.Context, entry *models.InteractionCacheEntry) error {
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.ExpiresAt = now.Add(c.ttl)

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	err = c.client.Set(ctx, entryKey(entry.CampaignID, entry.ParticipantID), payload, c.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}

	return nil
}

// Fetch returns the live entry for the key or ErrEntryNotFound.
func (c *RedisCache) Fetch(ctx context.Context, campaignID, participantID string) (*models.InteractionCacheEntry, error) {
	payload, err := c.client.Get(ctx, entryKey(campaignID, participantID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEntryNotFound
		}

		return nil, fmt.Errorf("failed to fetch cache entry: %w", err)
	}

	var entry models.InteractionCacheEntry

	err = json.Unmarshal(payload, &entry)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}

	return &entry, nil
}

// Clear deletes the entry. Clearing a missing entry is not an error.
func (c *RedisCache) Clear(ctx context.Context, campaignID, participantID string) error {
	err := c.client.Del(ctx, entryKey(campaignID, participantID)).Err()
	if err != nil {
		return fmt.Errorf("failed to clear cache entry: %w", err)
	}

	return nil
}

// HealthCheck verifies the redis connection.
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	err := c.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

// Close closes the redis client.
func (c *RedisCache) Close(_ context.Context) error {
	err := c.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}
