package models

import "time"

// DefaultInteractionTTL bounds how long a prepared field batch stays valid
// between the "show form" and "receive submission" round trips. It matches
// the session idle timeout of the chat platform adapter.
const DefaultInteractionTTL = 15 * time.Minute

// InteractionCacheEntry correlates a start trigger with the form
// submission that follows it. The chat platform splits that exchange into
// two independent events, possibly handled by different process instances,
// so the prepared batch and the campaign snapshot are cached between them.
type InteractionCacheEntry struct {
	CampaignID    string            `json:"campaign_id"`
	ParticipantID string            `json:"participant_id"`
	Fields        []*Question       `json:"fields"`
	Campaign      *CampaignSnapshot `json:"campaign"`
	Referral      *ReferralContext  `json:"referral,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	ExpiresAt     time.Time         `json:"expires_at"`
}

// Expired reports whether the entry is past its TTL at the given instant.
// An expired entry behaves exactly as if it never existed.
func (e *InteractionCacheEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}
