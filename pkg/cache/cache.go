// Package cache implements the interaction session cache that bridges the
// chat platform's two-round-trip form exchange: the prepared field batch
// stored on the start trigger is fetched again when the submission event
// arrives, possibly on a different process instance.
package cache

import (
	"context"
	"errors"

	"github.com/virion-labs/onboardflow/pkg/models"
)

// ErrEntryNotFound indicates no live entry exists for the key. A lookup
// past TTL behaves identically to an entry that never existed; the caller
// re-derives the batch from the session manager instead of failing.
var ErrEntryNotFound = errors.New("interaction cache entry not found")

// InteractionCache stores prepared field batches keyed by
// (campaign, participant) with a bounded lifetime. It is a correlation
// side channel, never the source of truth for session state.
type InteractionCache interface {
	Store(ctx context.Context, entry *models.InteractionCacheEntry) error
	Fetch(ctx context.Context, campaignID, participantID string) (*models.InteractionCacheEntry, error)
	Clear(ctx context.Context, campaignID, participantID string) error

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
