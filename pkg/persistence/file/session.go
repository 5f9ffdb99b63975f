package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/virion-labs/onboardflow/pkg/models"
	"github.com/virion-labs/onboardflow/pkg/persistence"
)

// SessionRepository stores each session as one JSON file under
// <root>/sessions, named by the (campaign, participant) key. A process
// mutex stands in for the per-row update semantics a database provides.
type SessionRepository struct {
	root string
	mu   sync.Mutex
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(root string) *SessionRepository {
	return &SessionRepository{root: root}
}

func (sr *SessionRepository) dir() string {
	return path.Join(sr.root, "sessions")
}

func (sr *SessionRepository) keyPath(campaignID, participantID string) string {
	return path.Join(sr.dir(), campaignID+"_"+participantID+".json")
}

// SessionByKey returns the session for a (campaign, participant) pair.
func (sr *SessionRepository) SessionByKey(_ context.Context, campaignID, participantID string) (*models.OnboardingSession, error) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	return sr.readSession(campaignID, participantID)
}

// SaveSession upserts the full session record.
func (sr *SessionRepository) SaveSession(_ context.Context, session *models.OnboardingSession) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

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

	return sr.writeSession(session)
}

// CompleteSession transitions a session to completed, returning false
// when it already was.
func (sr *SessionRepository) CompleteSession(_ context.Context, sessionID string, completedAt time.Time) (bool, error) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	session, err := sr.sessionByID(sessionID)
	if err != nil {
		return false, err
	}

	if session.IsCompleted() {
		return false, nil
	}

	at := completedAt.UTC()
	session.Status = models.SessionStatusCompleted
	session.CompletedAt = &at
	session.LastActivityAt = at

	err = sr.writeSession(session)
	if err != nil {
		return false, err
	}

	return true, nil
}

// MarkDispatched records that completion side effects were attempted.
func (sr *SessionRepository) MarkDispatched(_ context.Context, sessionID string, dispatchedAt time.Time) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	session, err := sr.sessionByID(sessionID)
	if err != nil {
		return err
	}

	at := dispatchedAt.UTC()
	session.DispatchedAt = &at

	return sr.writeSession(session)
}

// DeleteSession removes the session file. Deleting a missing session is
// not an error.
func (sr *SessionRepository) DeleteSession(_ context.Context, sessionID string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	session, err := sr.sessionByID(sessionID)
	if err != nil {
		if persistence.IsSessionNotFound(err) {
			return nil
		}

		return err
	}

	err = os.Remove(sr.keyPath(session.CampaignID, session.ParticipantID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}

	return nil
}

func (sr *SessionRepository) readSession(campaignID, participantID string) (*models.OnboardingSession, error) {
	data, err := os.ReadFile(sr.keyPath(campaignID, participantID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewSessionError("SessionByKey", campaignID, participantID, persistence.ErrSessionNotFound)
		}

		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var session models.OnboardingSession

	err = json.Unmarshal(data, &session)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

func (sr *SessionRepository) sessionByID(sessionID string) (*models.OnboardingSession, error) {
	entries, err := fs.Glob(os.DirFS(sr.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list session files: %w", err)
	}

	for _, entry := range entries {
		data, err := os.ReadFile(path.Join(sr.dir(), entry))
		if err != nil {
			return nil, fmt.Errorf("failed to read session file: %w", err)
		}

		var session models.OnboardingSession

		err = json.Unmarshal(data, &session)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal session: %w", err)
		}

		if session.ID == sessionID {
			return &session, nil
		}
	}

	return nil, persistence.NewSessionError("sessionByID", "", "", persistence.ErrSessionNotFound)
}

func (sr *SessionRepository) writeSession(session *models.OnboardingSession) error {
	err := os.MkdirAll(sr.dir(), 0o755)
	if err != nil {
		return fmt.Errorf("failed to create sessions directory: %w", err)
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	err = os.WriteFile(sr.keyPath(session.CampaignID, session.ParticipantID), data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}
