// Package dispatch performs the side effects of a completed onboarding
// session: role assignment, analytics logging and referral-conversion
// recording. All targets are independently failable; a failed target is
// logged and reported in the Result, never surfaced to the participant.
package dispatch

import (
	"context"
	"log/slog"

	"github.com/virion-labs/onboardflow/pkg/models"
)

// RoleAssigner grants a role or tag to a participant in the membership system.
type RoleAssigner interface {
	AssignRole(ctx context.Context, campaignID, participantID, roleID string) error
}

// InteractionLogger records a completed onboarding interaction for analytics.
type InteractionLogger interface {
	LogCompletion(ctx context.Context, session *models.OnboardingSession) error
}

// ReferralRecorder records a referral conversion attributed to a participant.
type ReferralRecorder interface {
	RecordConversion(ctx context.Context, participantID string, referral *models.ReferralContext) error
}

// Result reports the outcome of a completion dispatch. Failed targets are
// listed, not retried; the session store records that dispatch was
// attempted regardless of outcome.
type Result struct {
	RolesAssigned    []string `json:"roles_assigned,omitempty"`
	RolesFailed      []string `json:"roles_failed,omitempty"`
	AnalyticsLogged  bool     `json:"analytics_logged"`
	ReferralRecorded bool     `json:"referral_recorded"`
}

// Dispatcher fans a completed session out to the configured targets.
type Dispatcher struct {
	logger    *slog.Logger
	roles     RoleAssigner
	analytics InteractionLogger
	referrals ReferralRecorder
}

func NewDispatcher(logger *slog.Logger, roles RoleAssigner, analytics InteractionLogger, referrals ReferralRecorder) *Dispatcher {
	return &Dispatcher{
		logger:    logger.With("module", "dispatch"),
		roles:     roles,
		analytics: analytics,
		referrals: referrals,
	}
}

// Dispatch runs every configured side effect for the completed session.
// Each target fails independently; errors are logged and reflected in the
// Result. Dispatch never returns an error because the participant-facing
// completion acknowledgment must not block on any of these calls.
func (d *Dispatcher) Dispatch(ctx context.Context, campaign *models.Campaign, session *models.OnboardingSession) *Result {
	result := &Result{}

	logger := d.logger.With(
		"campaign_id", session.CampaignID,
		"participant_id", session.ParticipantID,
		"session_id", session.ID,
	)

	for _, roleID := range campaign.RoleIDs {
		if err := d.roles.AssignRole(ctx, session.CampaignID, session.ParticipantID, roleID); err != nil {
			logger.ErrorContext(ctx, "Role assignment failed", "role_id", roleID, "error", err)
			result.RolesFailed = append(result.RolesFailed, roleID)

			continue
		}

		result.RolesAssigned = append(result.RolesAssigned, roleID)
	}

	if err := d.analytics.LogCompletion(ctx, session); err != nil {
		logger.ErrorContext(ctx, "Analytics logging failed", "error", err)
	} else {
		result.AnalyticsLogged = true
	}

	if session.Referral != nil {
		if err := d.referrals.RecordConversion(ctx, session.ParticipantID, session.Referral); err != nil {
			logger.ErrorContext(ctx, "Referral conversion recording failed",
				"referral_code", session.Referral.Code, "error", err)
		} else {
			result.ReferralRecorded = true
		}
	}

	return result
}
