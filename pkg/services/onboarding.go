package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/virion-labs/onboardflow/pkg/cache"
	"github.com/virion-labs/onboardflow/pkg/dispatch"
	"github.com/virion-labs/onboardflow/pkg/eventbus"
	"github.com/virion-labs/onboardflow/pkg/events"
	"github.com/virion-labs/onboardflow/pkg/flow"
	"github.com/virion-labs/onboardflow/pkg/models"
	"github.com/virion-labs/onboardflow/pkg/persistence"
)

// Onboarding coordinates the session lifecycle: it loads campaign schemas,
// runs the flow engine over collected responses, persists session state
// and triggers completion side effects exactly once per completion.
type Onboarding struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	cache       cache.InteractionCache
	engine      *flow.Engine
	dispatcher  *dispatch.Dispatcher
	eventBus    eventbus.EventBus
	validate    *validator.Validate
}

func NewOnboarding(
	logger *slog.Logger,
	persist persistence.Persistence,
	interactionCache cache.InteractionCache,
	dispatcher *dispatch.Dispatcher,
	eventBus eventbus.EventBus,
) *Onboarding {
	return &Onboarding{
		logger:      logger.With("module", "onboarding"),
		persistence: persist,
		cache:       interactionCache,
		engine:      flow.NewEngine(logger),
		dispatcher:  dispatcher,
		eventBus:    eventBus,
		validate:    validator.New(),
	}
}

// HealthCheck checks the health of the persistence layer.
func (o *Onboarding) HealthCheck(ctx context.Context) (string, bool) {
	if o.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := o.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// SessionState is the view of a session returned to the chat-platform
// adapter after every operation.
type SessionState struct {
	Session     *models.OnboardingSession
	Campaign    *models.CampaignSnapshot
	Outstanding []*models.Question
	Report      *flow.Report

	// Created is true when the operation created the session rather
	// than resuming an existing one.
	Created bool
}

// GetOrCreateRequest identifies the participant starting or resuming a flow.
type GetOrCreateRequest struct {
	CampaignID      string
	ParticipantID   string
	ParticipantName string
	Referral        *models.ReferralContext
}

// GetOrCreate returns the existing session for the pair or creates a new
// one. A duplicate start trigger while a session is incomplete resumes it
// rather than creating a second record. The returned state carries the
// outstanding question batch the participant must see next; a campaign
// with zero enabled questions completes immediately.
func (o *Onboarding) GetOrCreate(ctx context.Context, req GetOrCreateRequest) (*SessionState, error) {
	if err := validateKey(req.CampaignID, req.ParticipantID); err != nil {
		return nil, err
	}

	campaign, err := o.persistence.Campaigns().CampaignByID(ctx, req.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}

	now := time.Now().UTC()
	created := false

	session, err := o.persistence.Sessions().SessionByKey(ctx, req.CampaignID, req.ParticipantID)

	switch {
	case err == nil:
		if !session.IsCompleted() {
			session.LastActivityAt = now
			if req.ParticipantName != "" {
				session.ParticipantName = req.ParticipantName
			}
		}
	case persistence.IsSessionNotFound(err):
		session = &models.OnboardingSession{
			ID:              uuid.Must(uuid.NewV7()).String(),
			CampaignID:      req.CampaignID,
			ParticipantID:   req.ParticipantID,
			ParticipantName: req.ParticipantName,
			Responses:       models.ResponseSet{},
			CurrentStep:     campaign.FirstStep(),
			Status:          models.SessionStatusCreated,
			Referral:        req.Referral,
			CreatedAt:       now,
			LastActivityAt:  now,
		}
		created = true
	default:
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	report := o.engine.AnalyzeCompletion(campaign, session.Responses)

	state := &SessionState{
		Session:     session,
		Campaign:    campaign.Snapshot(),
		Outstanding: report.Outstanding,
		Report:      report,
		Created:     created,
	}

	if session.IsCompleted() {
		// An explicit completion trigger can complete the session while
		// the analyzer still reports unanswered fields. The completed
		// status wins; no further fields are solicited.
		state.Outstanding = nil

		return state, nil
	}

	if !report.Complete {
		session.CurrentStep = report.CurrentStep
	}

	if err := o.persistence.Sessions().SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	if created {
		o.publish(ctx, session, events.SessionStarted{
			BaseEvent: o.baseEvent(events.SessionStartedEvent, session, now),
			Referral:  session.Referral,
		})
	}

	if report.Complete {
		if err := o.completeSession(ctx, campaign, session); err != nil {
			return nil, err
		}
	} else {
		o.storeInteractionEntry(ctx, campaign, session, report.Outstanding)
	}

	return state, nil
}

// SubmitResponses validates and merges a batch of field values, advances
// the session through the branching rules and completes it when every
// required field on the reachable path is answered. Rejected fields are
// reported per-field and nothing is persisted for that batch.
func (o *Onboarding) SubmitResponses(ctx context.Context, campaignID, participantID string, values models.ResponseSet, referral *models.ReferralContext) (*SessionState, error) {
	if err := validateKey(campaignID, participantID); err != nil {
		return nil, err
	}

	campaign, err := o.persistence.Campaigns().CampaignByID(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}

	now := time.Now().UTC()
	created := false

	session, err := o.persistence.Sessions().SessionByKey(ctx, campaignID, participantID)

	switch {
	case err == nil:
		if session.IsCompleted() {
			return nil, &ServiceError{
				Op:      "SubmitResponses",
				Code:    "session_completed",
				Message: "responses cannot be submitted to a completed session",
				Err:     ErrSessionAlreadyCompleted,
			}
		}
	case persistence.IsSessionNotFound(err):
		// A submission without a preceding start trigger still creates
		// the session; the cache entry may have expired between the two
		// chat round-trips.
		session = &models.OnboardingSession{
			ID:             uuid.Must(uuid.NewV7()).String(),
			CampaignID:     campaignID,
			ParticipantID:  participantID,
			Responses:      models.ResponseSet{},
			CurrentStep:    campaign.FirstStep(),
			Status:         models.SessionStatusCreated,
			Referral:       referral,
			CreatedAt:      now,
			LastActivityAt: now,
		}
		created = true
	default:
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	coerced, err := ValidateResponses(o.validate, campaign, values)
	if err != nil {
		return nil, err
	}

	for fieldKey, value := range coerced {
		session.Responses[fieldKey] = value
	}

	if referral != nil && session.Referral == nil {
		session.Referral = referral
	}

	session.Status = models.SessionStatusCollecting
	session.LastActivityAt = now

	report := o.engine.AnalyzeCompletion(campaign, session.Responses)
	if !report.Complete {
		session.CurrentStep = report.CurrentStep
	}

	if err := o.persistence.Sessions().SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	if created {
		o.publish(ctx, session, events.SessionStarted{
			BaseEvent: o.baseEvent(events.SessionStartedEvent, session, now),
			Referral:  session.Referral,
		})
	}

	o.publish(ctx, session, events.ResponsesSubmitted{
		BaseEvent:   o.baseEvent(events.ResponsesSubmittedEvent, session, now),
		FieldKeys:   fieldKeys(coerced),
		CurrentStep: session.CurrentStep,
		Percentage:  report.Percentage,
	})

	if report.Complete {
		if err := o.completeSession(ctx, campaign, session); err != nil {
			return nil, err
		}
	} else {
		o.storeInteractionEntry(ctx, campaign, session, report.Outstanding)
	}

	return &SessionState{
		Session:     session,
		Campaign:    campaign.Snapshot(),
		Outstanding: report.Outstanding,
		Report:      report,
		Created:     created,
	}, nil
}

// Restart discards the session's responses and returns it to the created
// state. This is the only way out of a completed session.
func (o *Onboarding) Restart(ctx context.Context, campaignID, participantID string) (*SessionState, error) {
	if err := validateKey(campaignID, participantID); err != nil {
		return nil, err
	}

	campaign, err := o.persistence.Campaigns().CampaignByID(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}

	session, err := o.persistence.Sessions().SessionByKey(ctx, campaignID, participantID)
	if err != nil {
		if persistence.IsSessionNotFound(err) {
			return nil, &ServiceError{
				Op:      "Restart",
				Code:    "session_not_started",
				Message: "cannot restart a session that was never started",
				Err:     ErrSessionNotStarted,
			}
		}

		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	now := time.Now().UTC()
	session.Reset(campaign.FirstStep(), now)

	if err := o.persistence.Sessions().SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	if err := o.cache.Clear(ctx, campaignID, participantID); err != nil {
		o.logger.WarnContext(ctx, "Failed to clear interaction cache entry", "error", err)
	}

	o.publish(ctx, session, events.SessionRestarted{
		BaseEvent: o.baseEvent(events.SessionRestartedEvent, session, now),
	})

	report := o.engine.AnalyzeCompletion(campaign, session.Responses)

	return &SessionState{
		Session:     session,
		Campaign:    campaign.Snapshot(),
		Outstanding: report.Outstanding,
		Report:      report,
	}, nil
}

// CompletionOutcome reports what MarkComplete did.
type CompletionOutcome struct {
	Session *models.OnboardingSession

	// AlreadyCompleted is true when the session was completed before this
	// call and no side effects were dispatched again.
	AlreadyCompleted bool

	// Dispatch is nil when side effects were not attempted by this call.
	Dispatch *dispatch.Result
}

// MarkComplete transitions the session to completed and dispatches the
// completion side effects. It is idempotent: whichever caller wins the
// store-level transition dispatches exactly once; every other caller gets
// AlreadyCompleted with no additional side effects.
func (o *Onboarding) MarkComplete(ctx context.Context, campaignID, participantID string) (*CompletionOutcome, error) {
	if err := validateKey(campaignID, participantID); err != nil {
		return nil, err
	}

	campaign, err := o.persistence.Campaigns().CampaignByID(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}

	session, err := o.persistence.Sessions().SessionByKey(ctx, campaignID, participantID)
	if err != nil {
		if persistence.IsSessionNotFound(err) {
			return nil, &ServiceError{
				Op:      "MarkComplete",
				Code:    "session_not_started",
				Message: "cannot complete a session that was never started",
				Err:     ErrSessionNotStarted,
			}
		}

		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	now := time.Now().UTC()

	won, err := o.persistence.Sessions().CompleteSession(ctx, session.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to complete session: %w", err)
	}

	if !won && session.DispatchedAt != nil {
		return &CompletionOutcome{Session: session, AlreadyCompleted: true}, nil
	}

	if won {
		session.Status = models.SessionStatusCompleted
		session.CompletedAt = &now
	}

	// A lost transition with no dispatch record means a previous caller
	// completed the session but crashed before dispatching; attempt the
	// side effects here so completion never goes undispatched.
	result := o.dispatchCompletion(ctx, campaign, session, now)

	return &CompletionOutcome{
		Session:          session,
		AlreadyCompleted: !won,
		Dispatch:         result,
	}, nil
}

// completeSession finalizes a session whose completion analysis succeeded.
// The store-level transition decides which concurrent caller dispatches.
func (o *Onboarding) completeSession(ctx context.Context, campaign *models.Campaign, session *models.OnboardingSession) error {
	now := time.Now().UTC()

	won, err := o.persistence.Sessions().CompleteSession(ctx, session.ID, now)
	if err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}

	session.Status = models.SessionStatusCompleted

	if session.CompletedAt == nil {
		session.CompletedAt = &now
	}

	if !won {
		return nil
	}

	o.dispatchCompletion(ctx, campaign, session, now)

	return nil
}

// dispatchCompletion runs the side effects and records the attempt.
// Target failures are logged by the dispatcher and never propagate.
func (o *Onboarding) dispatchCompletion(ctx context.Context, campaign *models.Campaign, session *models.OnboardingSession, now time.Time) *dispatch.Result {
	result := o.dispatcher.Dispatch(ctx, campaign, session)

	if err := o.persistence.Sessions().MarkDispatched(ctx, session.ID, now); err != nil {
		o.logger.ErrorContext(ctx, "Failed to record completion dispatch",
			"session_id", session.ID, "error", err)
	} else {
		session.DispatchedAt = &now
	}

	if err := o.cache.Clear(ctx, session.CampaignID, session.ParticipantID); err != nil {
		o.logger.WarnContext(ctx, "Failed to clear interaction cache entry", "error", err)
	}

	o.publish(ctx, session, events.SessionCompleted{
		BaseEvent:        o.baseEvent(events.SessionCompletedEvent, session, now),
		RolesAssigned:    result.RolesAssigned,
		ReferralRecorded: result.ReferralRecorded,
	})

	return result
}

// storeInteractionEntry caches the prepared batch for the second chat
// round-trip. Cache failures degrade to a re-derive on fetch, so they are
// logged rather than returned.
func (o *Onboarding) storeInteractionEntry(ctx context.Context, campaign *models.Campaign, session *models.OnboardingSession, outstanding []*models.Question) {
	entry := &models.InteractionCacheEntry{
		CampaignID:    session.CampaignID,
		ParticipantID: session.ParticipantID,
		Fields:        outstanding,
		Campaign:      campaign.Snapshot(),
		Referral:      session.Referral,
	}

	if err := o.cache.Store(ctx, entry); err != nil {
		o.logger.WarnContext(ctx, "Failed to store interaction cache entry",
			"campaign_id", session.CampaignID,
			"participant_id", session.ParticipantID,
			"error", err)
	}
}

func (o *Onboarding) baseEvent(eventType events.EventType, session *models.OnboardingSession, now time.Time) events.BaseEvent {
	return events.BaseEvent{
		ID:            o.eventBus.GenerateID(),
		Type:          eventType,
		Timestamp:     now,
		CampaignID:    session.CampaignID,
		ParticipantID: session.ParticipantID,
		SessionID:     session.ID,
	}
}

// publish sends a lifecycle event; publish failures are logged because
// notifications must not fail the participant-facing operation.
func (o *Onboarding) publish(ctx context.Context, session *models.OnboardingSession, event eventbus.Event) {
	if err := o.eventBus.Publish(ctx, session.ID, event); err != nil {
		o.logger.WarnContext(ctx, "Failed to publish lifecycle event",
			"event_type", event.GetType(), "session_id", session.ID, "error", err)
	}
}

func validateKey(campaignID, participantID string) error {
	if campaignID == "" {
		return ErrEmptyCampaignID
	}

	if participantID == "" {
		return ErrEmptyParticipantID
	}

	return nil
}

func fieldKeys(values models.ResponseSet) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	return keys
}
