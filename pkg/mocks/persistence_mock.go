// Package mocks provides testify mock implementations of the engine's
// interfaces for unit testing.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/virion-labs/onboardflow/pkg/models"
	"github.com/virion-labs/onboardflow/pkg/persistence"
)

// MockPersistence is a mock implementation of persistence.Persistence.
type MockPersistence struct {
	mock.Mock

	CampaignRepo *MockCampaignRepository
	SessionRepo  *MockSessionRepository
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		CampaignRepo: &MockCampaignRepository{},
		SessionRepo:  &MockSessionRepository{},
	}
}

func (m *MockPersistence) Campaigns() persistence.CampaignRepository {
	return m.CampaignRepo
}

func (m *MockPersistence) Sessions() persistence.SessionRepository {
	return m.SessionRepo
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// MockCampaignRepository is a mock implementation of persistence.CampaignRepository.
type MockCampaignRepository struct {
	mock.Mock
}

func (m *MockCampaignRepository) CampaignByID(ctx context.Context, id string) (*models.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) SaveCampaign(ctx context.Context, campaign *models.Campaign) error {
	args := m.Called(ctx, campaign)

	return args.Error(0)
}

func (m *MockCampaignRepository) Campaigns(ctx context.Context) ([]*models.Campaign, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) DeleteCampaign(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockSessionRepository is a mock implementation of persistence.SessionRepository.
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) SessionByKey(ctx context.Context, campaignID, participantID string) (*models.OnboardingSession, error) {
	args := m.Called(ctx, campaignID, participantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.OnboardingSession), args.Error(1)
}

func (m *MockSessionRepository) SaveSession(ctx context.Context, session *models.OnboardingSession) error {
	args := m.Called(ctx, session)

	return args.Error(0)
}

func (m *MockSessionRepository) CompleteSession(ctx context.Context, sessionID string, completedAt time.Time) (bool, error) {
	args := m.Called(ctx, sessionID, completedAt)

	return args.Bool(0), args.Error(1)
}

func (m *MockSessionRepository) MarkDispatched(ctx context.Context, sessionID string, dispatchedAt time.Time) error {
	args := m.Called(ctx, sessionID, dispatchedAt)

	return args.Error(0)
}

func (m *MockSessionRepository) DeleteSession(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)

	return args.Error(0)
}
