package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/virion-labs/onboardflow/pkg/cache"
	"github.com/virion-labs/onboardflow/pkg/models"
	"github.com/virion-labs/onboardflow/pkg/services"
)

type APIHandlers struct {
	onboardingService *services.Onboarding
	campaignService   *services.Campaign
	interactionCache  cache.InteractionCache
	validator         *validator.Validate
}

func NewAPIHandlers(
	onboardingService *services.Onboarding,
	campaignService *services.Campaign,
	interactionCache cache.InteractionCache,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		onboardingService: onboardingService,
		campaignService:   campaignService,
		interactionCache:  interactionCache,
		validator:         validator,
	}
}

// GetSession returns the participant's session and the next outstanding
// field batch. A missing session is created, so a duplicate start trigger
// resumes instead of duplicating.
func (h *APIHandlers) GetSession(c fiber.Ctx) error {
	campaignID := c.Query("campaign_id")
	participantID := c.Query("participant_id")

	if campaignID == "" || participantID == "" {
		return badRequest(c, "campaign_id and participant_id are required")
	}

	state, err := h.onboardingService.GetOrCreate(c.Context(), services.GetOrCreateRequest{
		CampaignID:    campaignID,
		ParticipantID: participantID,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformSessionResponse(state))
}

func (h *APIHandlers) CreateSession(c fiber.Ctx) error {
	var req CreateSessionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	state, err := h.onboardingService.GetOrCreate(c.Context(), services.GetOrCreateRequest{
		CampaignID:      req.CampaignID,
		ParticipantID:   req.ParticipantID,
		ParticipantName: req.ParticipantName,
		Referral:        req.Referral,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	status := fiber.StatusOK
	if state.Created {
		status = fiber.StatusCreated
	}

	return c.Status(status).JSON(TransformSessionResponse(state))
}

// SubmitField accepts the single field value a chat form round-trip
// delivers and returns the next field or the completion signal.
func (h *APIHandlers) SubmitField(c fiber.Ctx) error {
	var req SubmitFieldRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	values := models.ResponseSet{req.FieldKey: req.FieldValue}

	state, err := h.onboardingService.SubmitResponses(c.Context(), req.CampaignID, req.ParticipantID, values, req.Referral)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformSessionResponse(state))
}

// SubmitResponses accepts a batch of field values at once, used when the
// chat platform collects a whole step in a single modal.
func (h *APIHandlers) SubmitResponses(c fiber.Ctx) error {
	var req SubmitResponsesRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	state, err := h.onboardingService.SubmitResponses(c.Context(), req.CampaignID, req.ParticipantID, req.Responses, req.Referral)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformSessionResponse(state))
}

// CompleteSession triggers completion side effects idempotently and
// returns the role-assignment and analytics outcome.
func (h *APIHandlers) CompleteSession(c fiber.Ctx) error {
	var req SessionKeyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	outcome, err := h.onboardingService.MarkComplete(c.Context(), req.CampaignID, req.ParticipantID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"session":           outcome.Session,
		"already_completed": outcome.AlreadyCompleted,
		"dispatch":          outcome.Dispatch,
	})
}

func (h *APIHandlers) RestartSession(c fiber.Ctx) error {
	var req SessionKeyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	state, err := h.onboardingService.Restart(c.Context(), req.CampaignID, req.ParticipantID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformSessionResponse(state))
}

// GetCacheEntry fetches the prepared batch stored for the second chat
// round-trip. An expired entry returns 404 and the caller re-derives the
// batch through GetSession.
func (h *APIHandlers) GetCacheEntry(c fiber.Ctx) error {
	campaignID := c.Query("campaign_id")
	participantID := c.Query("participant_id")

	if campaignID == "" || participantID == "" {
		return badRequest(c, "campaign_id and participant_id are required")
	}

	entry, err := h.interactionCache.Fetch(c.Context(), campaignID, participantID)
	if err != nil {
		if errors.Is(err, cache.ErrEntryNotFound) {
			return notFound(c, "interaction cache entry not found")
		}

		return internalError(c, err)
	}

	return c.JSON(entry)
}

func (h *APIHandlers) StoreCacheEntry(c fiber.Ctx) error {
	var req StoreCacheEntryRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	entry := &models.InteractionCacheEntry{
		CampaignID:    req.CampaignID,
		ParticipantID: req.ParticipantID,
		Fields:        req.Fields,
		Campaign:      req.Campaign,
		Referral:      req.Referral,
	}

	if err := h.interactionCache.Store(c.Context(), entry); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(entry)
}

func (h *APIHandlers) DeleteCacheEntry(c fiber.Ctx) error {
	campaignID := c.Query("campaign_id")
	participantID := c.Query("participant_id")

	if campaignID == "" || participantID == "" {
		return badRequest(c, "campaign_id and participant_id are required")
	}

	if err := h.interactionCache.Clear(c.Context(), campaignID, participantID); err != nil {
		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetCampaign(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Campaign ID is required")
	}

	campaign, err := h.campaignService.CampaignByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(campaign)
}

// IngestCampaignSchema replaces a campaign's question schema with the
// authored list uploaded by the campaign editor.
func (h *APIHandlers) IngestCampaignSchema(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Campaign ID is required")
	}

	var req IngestSchemaRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	campaign, err := h.campaignService.IngestSchema(c.Context(), id, services.IngestSchemaRequest{
		Name:      req.Name,
		RoleIDs:   req.RoleIDs,
		Questions: req.Questions,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(campaign)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.onboardingService.HealthCheck(c.Context())

	cacheCheck := "Interaction cache is healthy"
	cacheOk := true

	if err := h.interactionCache.HealthCheck(c.Context()); err != nil {
		cacheCheck = "Interaction cache is unhealthy: " + err.Error()
		cacheOk = false
	}

	status := "unhealthy"
	message := "Onboardflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk && cacheOk {
		status = "healthy"
		message = "Onboardflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
			"cache":      cacheCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
