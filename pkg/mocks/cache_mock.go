package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/virion-labs/onboardflow/pkg/models"
)

// MockInteractionCache is a mock implementation of cache.InteractionCache.
type MockInteractionCache struct {
	mock.Mock
}

func (m *MockInteractionCache) Store(ctx context.Context, entry *models.InteractionCacheEntry) error {
	args := m.Called(ctx, entry)

	return args.Error(0)
}

func (m *MockInteractionCache) Fetch(ctx context.Context, campaignID, participantID string) (*models.InteractionCacheEntry, error) {
	args := m.Called(ctx, campaignID, participantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.InteractionCacheEntry), args.Error(1)
}

func (m *MockInteractionCache) Clear(ctx context.Context, campaignID, participantID string) error {
	args := m.Called(ctx, campaignID, participantID)

	return args.Error(0)
}

func (m *MockInteractionCache) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockInteractionCache) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
