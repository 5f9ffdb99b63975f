package web

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/virion-labs/onboardflow/pkg/cache"
	"github.com/virion-labs/onboardflow/pkg/dispatch"
	"github.com/virion-labs/onboardflow/pkg/mocks"
	"github.com/virion-labs/onboardflow/pkg/models"
	"github.com/virion-labs/onboardflow/pkg/persistence/file"
	"github.com/virion-labs/onboardflow/pkg/services"
)

func setupTestApp(t *testing.T) (*fiber.App, *file.Persistence) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	persist := file.NewPersistence(t.TempDir())

	interactionCache := cache.NewMemoryCache(logger, models.DefaultInteractionTTL)
	t.Cleanup(func() {
		_ = interactionCache.Close(context.Background())
	})

	eventBus := &mocks.MockEventBus{}
	eventBus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	roles := &mocks.MockRoleAssigner{}
	analytics := &mocks.MockInteractionLogger{}
	referrals := &mocks.MockReferralRecorder{}
	roles.On("AssignRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	analytics.On("LogCompletion", mock.Anything, mock.Anything).Return(nil)
	referrals.On("RecordConversion", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	dispatcher := dispatch.NewDispatcher(logger, roles, analytics, referrals)

	onboardingService := services.NewOnboarding(logger, persist, interactionCache, dispatcher, eventBus)
	campaignService := services.NewCampaign(logger, persist)

	handlers := NewAPIHandlers(onboardingService, campaignService, interactionCache, validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()

	s := app.Group("/sessions")
	s.Get("/", handlers.GetSession)
	s.Post("/", handlers.CreateSession)
	s.Put("/", handlers.SubmitField)
	s.Put("/responses", handlers.SubmitResponses)
	s.Post("/complete", handlers.CompleteSession)
	s.Post("/restart", handlers.RestartSession)

	ic := app.Group("/interaction-cache")
	ic.Get("/", handlers.GetCacheEntry)
	ic.Post("/", handlers.StoreCacheEntry)
	ic.Delete("/", handlers.DeleteCacheEntry)

	campaigns := app.Group("/campaigns")
	campaigns.Get("/:id", handlers.GetCampaign)
	campaigns.Put("/:id/schema", handlers.IngestCampaignSchema)

	app.Get("/health", handlers.HealthCheck)

	return app, persist
}

func saveTestCampaign(t *testing.T, persist *file.Persistence) {
	t.Helper()

	campaign := &models.Campaign{
		ID:   "c1",
		Name: "Creator onboarding",
		Questions: []*models.Question{
			{FieldKey: "name", FieldLabel: "Name", FieldType: models.FieldTypeText, StepNumber: 1, Required: true, Enabled: true},
			{FieldKey: "email", FieldLabel: "Email", FieldType: models.FieldTypeEmail, StepNumber: 2, Required: true, Enabled: true},
		},
	}

	require.NoError(t, persist.Campaigns().SaveCampaign(context.Background(), campaign))
}

func doJSON(t *testing.T, app *fiber.App, method, target string, payload any) *http.Response {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeSession(t *testing.T, resp *http.Response) SessionResponse {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()

	var out SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return out
}

func TestCreateSession(t *testing.T) {
	app, persist := setupTestApp(t)
	saveTestCampaign(t, persist)

	resp := doJSON(t, app, http.MethodPost, "/sessions/", map[string]any{
		"campaign_id":      "c1",
		"participant_id":   "p1",
		"participant_name": "Sam",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	out := decodeSession(t, resp)
	assert.False(t, out.IsCompleted)
	require.NotNil(t, out.NextField)
	assert.Equal(t, "name", out.NextField.FieldKey)

	// A duplicate start resumes instead of creating.
	resp = doJSON(t, app, http.MethodPost, "/sessions/", map[string]any{
		"campaign_id":    "c1",
		"participant_id": "p1",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestCreateSession_UnknownCampaign(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/sessions/", map[string]any{
		"campaign_id":    "ghost",
		"participant_id": "p1",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestCreateSession_MissingFields(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/sessions/", map[string]any{
		"campaign_id": "c1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestSubmitField_FlowToCompletion(t *testing.T) {
	app, persist := setupTestApp(t)
	saveTestCampaign(t, persist)

	resp := doJSON(t, app, http.MethodPut, "/sessions/", map[string]any{
		"campaign_id":    "c1",
		"participant_id": "p1",
		"field_key":      "name",
		"field_value":    "Sam",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeSession(t, resp)
	assert.False(t, out.IsCompleted)
	require.NotNil(t, out.NextField)
	assert.Equal(t, "email", out.NextField.FieldKey)

	resp = doJSON(t, app, http.MethodPut, "/sessions/", map[string]any{
		"campaign_id":    "c1",
		"participant_id": "p1",
		"field_key":      "email",
		"field_value":    "sam@example.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out = decodeSession(t, resp)
	assert.True(t, out.IsCompleted)
	assert.Nil(t, out.NextField)
	assert.InDelta(t, 100.0, out.CompletionPercentage, 0.001)
}

func TestSubmitField_ValidationErrorListsFields(t *testing.T) {
	app, persist := setupTestApp(t)
	saveTestCampaign(t, persist)

	resp := doJSON(t, app, http.MethodPut, "/sessions/", map[string]any{
		"campaign_id":    "c1",
		"participant_id": "p1",
		"field_key":      "email",
		"field_value":    "not-an-email",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	defer func() { _ = resp.Body.Close() }()

	var problem struct {
		Type   string `json:"type"`
		Fields []struct {
			FieldKey string `json:"field_key"`
			Reason   string `json:"reason"`
		} `json:"fields"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	assert.Equal(t, "field_validation_error", problem.Type)
	require.Len(t, problem.Fields, 1)
	assert.Equal(t, "email", problem.Fields[0].FieldKey)
}

func TestCompleteSession_Idempotent(t *testing.T) {
	app, persist := setupTestApp(t)
	saveTestCampaign(t, persist)

	resp := doJSON(t, app, http.MethodPut, "/sessions/responses", map[string]any{
		"campaign_id":    "c1",
		"participant_id": "p1",
		"responses": map[string]any{
			"name":  "Sam",
			"email": "sam@example.com",
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, "/sessions/complete", map[string]any{
		"campaign_id":    "c1",
		"participant_id": "p1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer func() { _ = resp.Body.Close() }()

	var out struct {
		AlreadyCompleted bool `json:"already_completed"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.AlreadyCompleted)
}

func TestRestartSession(t *testing.T) {
	app, persist := setupTestApp(t)
	saveTestCampaign(t, persist)

	resp := doJSON(t, app, http.MethodPut, "/sessions/", map[string]any{
		"campaign_id":    "c1",
		"participant_id": "p1",
		"field_key":      "name",
		"field_value":    "Sam",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, "/sessions/restart", map[string]any{
		"campaign_id":    "c1",
		"participant_id": "p1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeSession(t, resp)
	assert.Empty(t, out.Session.Responses)
	require.NotNil(t, out.NextField)
	assert.Equal(t, "name", out.NextField.FieldKey)
}

func TestInteractionCacheEndpoints(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/interaction-cache/", map[string]any{
		"campaign_id":    "c1",
		"participant_id": "p1",
		"fields": []map[string]any{
			{"field_key": "name", "field_type": "text", "step_number": 1, "is_enabled": true},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/interaction-cache/?campaign_id=c1&participant_id=p1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodDelete, "/interaction-cache/?campaign_id=c1&participant_id=p1", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/interaction-cache/?campaign_id=c1&participant_id=p1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestIngestCampaignSchema(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPut, "/campaigns/c2/schema", map[string]any{
		"name": "Ambassador onboarding",
		"questions": []map[string]any{
			{"field_key": "handle", "field_type": "text", "step_number": 1, "is_enabled": true, "is_required": true},
			{"field_key": "", "field_type": "text", "step_number": 1, "is_enabled": true},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer func() { _ = resp.Body.Close() }()

	var out models.Campaign
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "c2", out.ID)
	// The malformed question was dropped during normalization.
	assert.Len(t, out.Questions, 1)

	resp = doJSON(t, app, http.MethodGet, "/campaigns/c2", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestHealthCheck(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestGetSession_AfterForcedCompletion(t *testing.T) {
	app, persist := setupTestApp(t)
	saveTestCampaign(t, persist)

	resp := doJSON(t, app, http.MethodPost, "/sessions/", map[string]any{
		"campaign_id":    "c1",
		"participant_id": "p1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	// Complete while both required fields are still unanswered.
	resp = doJSON(t, app, http.MethodPost, "/sessions/complete", map[string]any{
		"campaign_id":    "c1",
		"participant_id": "p1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	// The session view must not offer fields a completed session refuses.
	resp = doJSON(t, app, http.MethodGet, "/sessions/?campaign_id=c1&participant_id=p1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer func() { _ = resp.Body.Close() }()

	var out struct {
		IsCompleted bool               `json:"is_completed"`
		NextField   *models.Question   `json:"next_field"`
		Outstanding []*models.Question `json:"outstanding"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.IsCompleted)
	assert.Nil(t, out.NextField)
	assert.Empty(t, out.Outstanding)

	// A submit after the forced completion stays refused.
	resp = doJSON(t, app, http.MethodPut, "/sessions/responses", map[string]any{
		"campaign_id":    "c1",
		"participant_id": "p1",
		"responses":      map[string]any{"name": "Sam"},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()
}
