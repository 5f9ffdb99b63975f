package models

import "time"

// SessionStatus is the lifecycle state of an onboarding session.
type SessionStatus string

const (
	SessionStatusCreated    SessionStatus = "created"    // session exists, nothing submitted yet
	SessionStatusCollecting SessionStatus = "collecting" // at least one response recorded
	SessionStatusCompleted  SessionStatus = "completed"  // terminal, reset only via restart
)

// OnboardingSession tracks one participant's progress through a campaign's
// onboarding flow. There is at most one session per (campaign, participant)
// pair; a restart replaces its state in place rather than creating a
// second record.
type OnboardingSession struct {
	ID              string           `json:"id"`
	CampaignID      string           `json:"campaign_id"`
	ParticipantID   string           `json:"participant_id"`
	ParticipantName string           `json:"participant_name,omitempty"`
	Responses       ResponseSet      `json:"responses"`
	CurrentStep     int              `json:"current_step"`
	Status          SessionStatus    `json:"status"`
	Referral        *ReferralContext `json:"referral,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	LastActivityAt  time.Time        `json:"last_activity_at"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	DispatchedAt    *time.Time       `json:"dispatched_at,omitempty"` // completion side effects attempted
}

// IsCompleted reports whether the session reached the terminal state.
func (s *OnboardingSession) IsCompleted() bool {
	return s.Status == SessionStatusCompleted
}

// Reset discards all collected responses and returns the session to the
// created state, keeping its identity and referral context.
func (s *OnboardingSession) Reset(firstStep int, now time.Time) {
	s.Responses = ResponseSet{}
	s.CurrentStep = firstStep
	s.Status = SessionStatusCreated
	s.CompletedAt = nil
	s.DispatchedAt = nil
	s.LastActivityAt = now
}
