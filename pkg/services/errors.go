// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest        = errors.New("invalid request")
	ErrEmptyCampaignID       = errors.New("campaign ID cannot be empty")
	ErrEmptyParticipantID    = errors.New("participant ID cannot be empty")
	ErrInvalidResponses      = errors.New("one or more responses failed validation")
	ErrCampaignNameRequired  = errors.New("campaign name is required")
	ErrUnknownStep           = errors.New("step does not exist in campaign")

	// Business Logic Conflicts (409 Conflict).
	ErrSessionAlreadyCompleted = errors.New("session is already completed")
	ErrSessionNotStarted       = errors.New("session has not been started")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// FieldValidationError describes a single response value that failed
// validation against its question definition.
type FieldValidationError struct {
	FieldKey string `json:"field_key"`
	Reason   string `json:"reason"`
}

func (e *FieldValidationError) Error() string {
	return fmt.Sprintf("field %q: %s", e.FieldKey, e.Reason)
}

// ResponsesValidationError aggregates per-field failures from a response
// submission. It unwraps to ErrInvalidResponses so callers can map it to
// a 400 without inspecting the field list.
type ResponsesValidationError struct {
	Fields []*FieldValidationError
}

func (e *ResponsesValidationError) Error() string {
	return fmt.Sprintf("%v: %d field(s) rejected", ErrInvalidResponses, len(e.Fields))
}

func (e *ResponsesValidationError) Unwrap() error {
	return ErrInvalidResponses
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrEmptyCampaignID) ||
		errors.Is(err, ErrEmptyParticipantID) ||
		errors.Is(err, ErrInvalidResponses) ||
		errors.Is(err, ErrCampaignNameRequired) ||
		errors.Is(err, ErrUnknownStep)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrSessionAlreadyCompleted) ||
		errors.Is(err, ErrSessionNotStarted)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
