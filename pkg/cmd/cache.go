package cmd

import (
	"context"
	"log/slog"

	"github.com/virion-labs/onboardflow/pkg/cache"
	"github.com/virion-labs/onboardflow/pkg/models"
)

// NewInteractionCache returns the Redis-backed cache when a Redis URL is
// configured, so entries survive across process instances, and the
// in-memory cache otherwise.
func NewInteractionCache(ctx context.Context, logger *slog.Logger, redisURL string) (cache.InteractionCache, error) {
	if redisURL != "" {
		return cache.NewRedisCache(ctx, logger, redisURL, models.DefaultInteractionTTL)
	}

	return cache.NewMemoryCache(logger, models.DefaultInteractionTTL), nil
}
