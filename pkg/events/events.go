// Package events defines event types for onboarding lifecycle notifications.
package events

import (
	"time"

	"github.com/virion-labs/onboardflow/pkg/models"
)

type EventType string

// Topic carries all onboarding lifecycle events.
const Topic = "onboardflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	SessionStartedEvent     EventType = "onboarding.session.started"
	ResponsesSubmittedEvent EventType = "onboarding.responses.submitted"
	SessionCompletedEvent   EventType = "onboarding.session.completed"
	SessionRestartedEvent   EventType = "onboarding.session.restarted"
)

type BaseEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	CampaignID    string    `json:"campaign_id"`
	ParticipantID string    `json:"participant_id"`
	SessionID     string    `json:"session_id"`
}

// Base exposes the shared envelope for consumers that only need the
// session coordinates.
func (e BaseEvent) Base() BaseEvent {
	return e
}

// SessionStarted fires when a (campaign, participant) session is created
// for the first time. Resuming an existing session does not fire it again.
type SessionStarted struct {
	BaseEvent

	Referral *models.ReferralContext `json:"referral,omitempty"`
}

func (e SessionStarted) GetType() EventType {
	return SessionStartedEvent
}

// ResponsesSubmitted fires after a validated batch of field values is
// merged into the session.
type ResponsesSubmitted struct {
	BaseEvent

	FieldKeys   []string `json:"field_keys"`
	CurrentStep int      `json:"current_step"`
	Percentage  float64  `json:"completion_percentage"`
}

func (e ResponsesSubmitted) GetType() EventType {
	return ResponsesSubmittedEvent
}

// SessionCompleted fires exactly once per completion; duplicate
// completion triggers are absorbed by the session store.
type SessionCompleted struct {
	BaseEvent

	RolesAssigned    []string `json:"roles_assigned,omitempty"`
	ReferralRecorded bool     `json:"referral_recorded"`
}

func (e SessionCompleted) GetType() EventType {
	return SessionCompletedEvent
}

// SessionRestarted fires when a participant explicitly restarts,
// discarding collected responses.
type SessionRestarted struct {
	BaseEvent
}

func (e SessionRestarted) GetType() EventType {
	return SessionRestartedEvent
}
