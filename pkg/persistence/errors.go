// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrCampaignNotFound indicates no campaign exists for the given identifier.
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrSessionNotFound indicates no session exists for the given
	// (campaign, participant) pair. Callers treat this as "create new",
	// not as a failure.
	ErrSessionNotFound = errors.New("onboarding session not found")

	// ErrStoreUnavailable indicates the backend store is transiently
	// unreachable. The operation is retryable and session state was left
	// unchanged.
	ErrStoreUnavailable = errors.New("backend store unavailable")
)

// SessionError wraps session-related errors with operation context.
type SessionError struct {
	Op            string // Operation being performed (e.g. "SessionByKey", "SaveSession")
	CampaignID    string
	ParticipantID string
	Err           error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s failed for campaign %s participant %s: %v",
		e.Op, e.CampaignID, e.ParticipantID, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func (e *SessionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewSessionError creates a session error with context.
func NewSessionError(op, campaignID, participantID string, err error) *SessionError {
	return &SessionError{
		Op:            op,
		CampaignID:    campaignID,
		ParticipantID: participantID,
		Err:           err,
	}
}

// IsCampaignNotFound checks if an error indicates a missing campaign.
func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

// IsSessionNotFound checks if an error indicates a missing session.
func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

// IsStoreUnavailable checks if an error is retryable.
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
