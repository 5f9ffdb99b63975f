package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/virion-labs/onboardflow/pkg/models"
	"github.com/virion-labs/onboardflow/pkg/persistence"
)

// SessionRepository handles onboarding-session database operations.
type SessionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sql.DB, logger *slog.Logger) *SessionRepository {
	return &SessionRepository{db: db, logger: logger}
}

// SessionByKey returns the session for a (campaign, participant) pair.
func (r *SessionRepository) SessionByKey(ctx context.Context, campaignID, participantID string) (*models.OnboardingSession, error) {
	query := `
		SELECT
			id
		  , campaign_id
		  , participant_id
		  , participant_name
		  , responses
		  , current_step
		  , status
		  , referral
		  , created_at
		  , last_activity_at
		  , completed_at
		  , dispatched_at
		FROM onboarding_sessions
		WHERE campaign_id = $1 AND participant_id = $2
	`

	session, err := r.scanSession(r.db.QueryRowContext(ctx, query, campaignID, participantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewSessionError("SessionByKey", campaignID, participantID, persistence.ErrSessionNotFound)
		}

		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	return session, nil
}

// SaveSession upserts the full session record. The unique
// (campaign_id, participant_id) constraint enforces the one-session-per-
// pair invariant; concurrent saves resolve last-write-wins per row.
func (r *SessionRepository) SaveSession(ctx context.Context, session *models.OnboardingSession) error {
	now := time.Now().UTC()

	if session.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate session ID: %w", err)
		}

		session.ID = id.String()
	}

	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}

	if session.LastActivityAt.IsZero() {
		session.LastActivityAt = now
	}

	responsesJSON, err := json.Marshal(session.Responses)
	if err != nil {
		return fmt.Errorf("failed to marshal responses: %w", err)
	}

	var referralJSON []byte

	if session.Referral != nil {
		referralJSON, err = json.Marshal(session.Referral)
		if err != nil {
			return fmt.Errorf("failed to marshal referral context: %w", err)
		}
	}

	query := `
		INSERT INTO onboarding_sessions (
			id, campaign_id, participant_id, participant_name, responses,
			current_step, status, referral, created_at, last_activity_at,
			completed_at, dispatched_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (campaign_id, participant_id) DO UPDATE SET
			participant_name = EXCLUDED.participant_name,
			responses = EXCLUDED.responses,
			current_step = EXCLUDED.current_step,
			status = EXCLUDED.status,
			referral = EXCLUDED.referral,
			last_activity_at = EXCLUDED.last_activity_at,
			completed_at = EXCLUDED.completed_at,
			dispatched_at = EXCLUDED.dispatched_at
	`

	_, err = r.db.ExecContext(ctx, query,
		session.ID,
		session.CampaignID,
		session.ParticipantID,
		session.ParticipantName,
		responsesJSON,
		session.CurrentStep,
		session.Status,
		referralJSON,
		session.CreatedAt,
		session.LastActivityAt,
		session.CompletedAt,
		session.DispatchedAt,
	)
	if err != nil {
		return persistence.NewSessionError("SaveSession", session.CampaignID, session.ParticipantID, err)
	}

	return nil
}

// CompleteSession atomically transitions a session to completed. It
// returns false when the row was already completed, so duplicate
// completion triggers fire side effects at most once.
func (r *SessionRepository) CompleteSession(ctx context.Context, sessionID string, completedAt time.Time) (bool, error) {
	query := `
		UPDATE onboarding_sessions
		SET status = 'completed', completed_at = $2, last_activity_at = $2
		WHERE id = $1 AND status <> 'completed'
	`

	result, err := r.db.ExecContext(ctx, query, sessionID, completedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to complete session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// MarkDispatched records that completion side effects were attempted.
func (r *SessionRepository) MarkDispatched(ctx context.Context, sessionID string, dispatchedAt time.Time) error {
	query := `UPDATE onboarding_sessions SET dispatched_at = $2 WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, sessionID, dispatchedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to mark session dispatched: %w", err)
	}

	return nil
}

// DeleteSession removes a session record. Deleting a missing session is
// not an error.
func (r *SessionRepository) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM onboarding_sessions WHERE id = $1", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

func (r *SessionRepository) scanSession(scanner interface {
	Scan(dest ...any) error
}) (*models.OnboardingSession, error) {
	var (
		session                     models.OnboardingSession
		participantName             sql.NullString
		responsesJSON, referralJSON []byte
	)

	err := scanner.Scan(
		&session.ID,
		&session.CampaignID,
		&session.ParticipantID,
		&participantName,
		&responsesJSON,
		&session.CurrentStep,
		&session.Status,
		&referralJSON,
		&session.CreatedAt,
		&session.LastActivityAt,
		&session.CompletedAt,
		&session.DispatchedAt,
	)
	if err != nil {
		return nil, err
	}

	session.ParticipantName = participantName.String
	session.Responses = models.ResponseSet{}

	if responsesJSON != nil {
		err := json.Unmarshal(responsesJSON, &session.Responses)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal responses: %w", err)
		}
	}

	if referralJSON != nil {
		err := json.Unmarshal(referralJSON, &session.Referral)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal referral context: %w", err)
		}
	}

	return &session, nil
}
