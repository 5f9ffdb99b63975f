package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/virion-labs/onboardflow/pkg/mocks"
	"github.com/virion-labs/onboardflow/pkg/models"
)

func testSession(referral *models.ReferralContext) *models.OnboardingSession {
	now := time.Now().UTC()

	return &models.OnboardingSession{
		ID:            "s1",
		CampaignID:    "c1",
		ParticipantID: "p1",
		Status:        models.SessionStatusCompleted,
		CompletedAt:   &now,
		Referral:      referral,
	}
}

func testCampaign(roleIDs ...string) *models.Campaign {
	return &models.Campaign{ID: "c1", Name: "Test", RoleIDs: roleIDs}
}

func newTestDispatcher(roles *mocks.MockRoleAssigner, analytics *mocks.MockInteractionLogger, referrals *mocks.MockReferralRecorder) *Dispatcher {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	return NewDispatcher(logger, roles, analytics, referrals)
}

func TestDispatch_AllTargetsSucceed(t *testing.T) {
	roles := &mocks.MockRoleAssigner{}
	analytics := &mocks.MockInteractionLogger{}
	referrals := &mocks.MockReferralRecorder{}

	roles.On("AssignRole", mock.Anything, "c1", "p1", mock.Anything).Return(nil)
	analytics.On("LogCompletion", mock.Anything, mock.Anything).Return(nil)
	referrals.On("RecordConversion", mock.Anything, "p1", mock.Anything).Return(nil)

	d := newTestDispatcher(roles, analytics, referrals)

	result := d.Dispatch(context.Background(), testCampaign("r1", "r2"), testSession(&models.ReferralContext{Code: "REF"}))

	assert.Equal(t, []string{"r1", "r2"}, result.RolesAssigned)
	assert.Empty(t, result.RolesFailed)
	assert.True(t, result.AnalyticsLogged)
	assert.True(t, result.ReferralRecorded)
}

func TestDispatch_TargetsFailIndependently(t *testing.T) {
	roles := &mocks.MockRoleAssigner{}
	analytics := &mocks.MockInteractionLogger{}
	referrals := &mocks.MockReferralRecorder{}

	roles.On("AssignRole", mock.Anything, "c1", "p1", "r1").Return(errors.New("membership service down"))
	roles.On("AssignRole", mock.Anything, "c1", "p1", "r2").Return(nil)
	analytics.On("LogCompletion", mock.Anything, mock.Anything).Return(errors.New("analytics down"))
	referrals.On("RecordConversion", mock.Anything, "p1", mock.Anything).Return(nil)

	d := newTestDispatcher(roles, analytics, referrals)

	result := d.Dispatch(context.Background(), testCampaign("r1", "r2"), testSession(&models.ReferralContext{Code: "REF"}))

	// One role failing must not stop the other, and no failure is an error.
	assert.Equal(t, []string{"r2"}, result.RolesAssigned)
	assert.Equal(t, []string{"r1"}, result.RolesFailed)
	assert.False(t, result.AnalyticsLogged)
	assert.True(t, result.ReferralRecorded)
}

func TestDispatch_NoReferralSkipsConversion(t *testing.T) {
	roles := &mocks.MockRoleAssigner{}
	analytics := &mocks.MockInteractionLogger{}
	referrals := &mocks.MockReferralRecorder{}

	analytics.On("LogCompletion", mock.Anything, mock.Anything).Return(nil)

	d := newTestDispatcher(roles, analytics, referrals)

	result := d.Dispatch(context.Background(), testCampaign(), testSession(nil))

	assert.False(t, result.ReferralRecorded)
	referrals.AssertNotCalled(t, "RecordConversion", mock.Anything, mock.Anything, mock.Anything)
}
