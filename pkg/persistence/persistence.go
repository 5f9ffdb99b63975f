// Package persistence provides the data storage abstraction layer for
// campaigns and onboarding sessions.
package persistence

import (
	"context"
	"time"

	"github.com/virion-labs/onboardflow/pkg/models"
)

// Persistence is the durable store behind the onboarding engine. It is the
// single source of truth; any in-process caching in front of it holds
// hints only.
type Persistence interface {
	Campaigns() CampaignRepository
	Sessions() SessionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// CampaignRepository stores campaign schemas and their branching rules.
type CampaignRepository interface {
	// CampaignByID returns the campaign or ErrCampaignNotFound.
	CampaignByID(ctx context.Context, id string) (*models.Campaign, error)
	SaveCampaign(ctx context.Context, campaign *models.Campaign) error
	Campaigns(ctx context.Context) ([]*models.Campaign, error)
	DeleteCampaign(ctx context.Context, id string) error
}

// SessionRepository stores onboarding sessions keyed by
// (campaign, participant). Implementations rely on the store's per-row
// update semantics; the engine takes no in-process locks.
type SessionRepository interface {
	// SessionByKey returns the session for the pair or ErrSessionNotFound.
	SessionByKey(ctx context.Context, campaignID, participantID string) (*models.OnboardingSession, error)

	// SaveSession upserts the full session record.
	SaveSession(ctx context.Context, session *models.OnboardingSession) error

	// CompleteSession atomically transitions the session to completed.
	// It returns false when the session was already completed, which
	// keeps completion side effects idempotent across duplicate triggers
	// and process instances.
	CompleteSession(ctx context.Context, sessionID string, completedAt time.Time) (bool, error)

	// MarkDispatched records that completion side effects were attempted.
	MarkDispatched(ctx context.Context, sessionID string, dispatchedAt time.Time) error

	DeleteSession(ctx context.Context, sessionID string) error
}
