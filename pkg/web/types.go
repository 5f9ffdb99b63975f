// Package web provides HTTP request and response types for the onboarding API.
package web

import (
	"github.com/virion-labs/onboardflow/pkg/models"
	"github.com/virion-labs/onboardflow/pkg/services"
)

// CreateSessionRequest starts or resumes an onboarding session for a
// participant.
type CreateSessionRequest struct {
	CampaignID      string                  `json:"campaign_id"      validate:"required"`
	ParticipantID   string                  `json:"participant_id"   validate:"required"`
	ParticipantName string                  `json:"participant_name"`
	Referral        *models.ReferralContext `json:"referral,omitempty"`
}

// SubmitFieldRequest submits a single field value, the unit the chat
// platform delivers per form round-trip.
type SubmitFieldRequest struct {
	CampaignID    string                  `json:"campaign_id"    validate:"required"`
	ParticipantID string                  `json:"participant_id" validate:"required"`
	FieldKey      string                  `json:"field_key"      validate:"required"`
	FieldValue    any                     `json:"field_value"`
	Referral      *models.ReferralContext `json:"referral,omitempty"`
}

// SubmitResponsesRequest submits a batch of field values at once.
type SubmitResponsesRequest struct {
	CampaignID    string                  `json:"campaign_id"    validate:"required"`
	ParticipantID string                  `json:"participant_id" validate:"required"`
	Responses     models.ResponseSet      `json:"responses"      validate:"required"`
	Referral      *models.ReferralContext `json:"referral,omitempty"`
}

// SessionKeyRequest identifies a session by its natural key.
type SessionKeyRequest struct {
	CampaignID    string `json:"campaign_id"    validate:"required"`
	ParticipantID string `json:"participant_id" validate:"required"`
}

// SessionResponse is the state view returned by every session operation.
type SessionResponse struct {
	Session              *models.OnboardingSession `json:"session"`
	Campaign             *models.CampaignSnapshot  `json:"campaign"`
	IsCompleted          bool                      `json:"is_completed"`
	NextField            *models.Question          `json:"next_field"`
	Outstanding          []*models.Question        `json:"outstanding,omitempty"`
	MissingFields        []string                  `json:"missing_fields,omitempty"`
	CompletionPercentage float64                   `json:"completion_percentage"`
	Created              bool                      `json:"created,omitempty"`
}

// TransformSessionResponse builds the API view from a service state. A
// session completed by an explicit trigger counts as completed even when
// the completion analysis still reports unanswered fields; the view never
// solicits input a completed session would refuse.
func TransformSessionResponse(state *services.SessionState) SessionResponse {
	response := SessionResponse{
		Session:              state.Session,
		Campaign:             state.Campaign,
		IsCompleted:          state.Report.Complete || state.Session.IsCompleted(),
		CompletionPercentage: state.Report.Percentage,
		Created:              state.Created,
	}

	if response.IsCompleted {
		return response
	}

	missing := make([]string, 0, len(state.Report.MissingFields))
	for _, q := range state.Report.MissingFields {
		missing = append(missing, q.FieldKey)
	}

	response.Outstanding = state.Outstanding
	response.MissingFields = missing

	if len(state.Outstanding) > 0 {
		response.NextField = state.Outstanding[0]
	}

	return response
}

// IngestSchemaRequest uploads a campaign's authored question list.
type IngestSchemaRequest struct {
	Name      string                    `json:"name"       validate:"required,min=3"`
	RoleIDs   []string                  `json:"role_ids"`
	Questions []models.AuthoredQuestion `json:"questions"`
}

// StoreCacheEntryRequest stores a prepared field batch for the second
// chat round-trip.
type StoreCacheEntryRequest struct {
	CampaignID    string                   `json:"campaign_id"    validate:"required"`
	ParticipantID string                   `json:"participant_id" validate:"required"`
	Fields        []*models.Question       `json:"fields"`
	Campaign      *models.CampaignSnapshot `json:"campaign,omitempty"`
	Referral      *models.ReferralContext  `json:"referral,omitempty"`
}
