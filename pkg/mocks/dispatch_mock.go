package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/virion-labs/onboardflow/pkg/models"
)

// MockRoleAssigner is a mock implementation of dispatch.RoleAssigner.
type MockRoleAssigner struct {
	mock.Mock
}

func (m *MockRoleAssigner) AssignRole(ctx context.Context, campaignID, participantID, roleID string) error {
	args := m.Called(ctx, campaignID, participantID, roleID)

	return args.Error(0)
}

// MockInteractionLogger is a mock implementation of dispatch.InteractionLogger.
type MockInteractionLogger struct {
	mock.Mock
}

func (m *MockInteractionLogger) LogCompletion(ctx context.Context, session *models.OnboardingSession) error {
	args := m.Called(ctx, session)

	return args.Error(0)
}

// MockReferralRecorder is a mock implementation of dispatch.ReferralRecorder.
type MockReferralRecorder struct {
	mock.Mock
}

func (m *MockReferralRecorder) RecordConversion(ctx context.Context, participantID string, referral *models.ReferralContext) error {
	args := m.Called(ctx, participantID, referral)

	return args.Error(0)
}
