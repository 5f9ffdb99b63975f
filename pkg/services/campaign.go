package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/virion-labs/onboardflow/pkg/models"
	"github.com/virion-labs/onboardflow/pkg/persistence"
)

// Campaign manages campaign schema ingestion from the external authoring
// tool. Authored questions arrive loosely typed and partially malformed;
// they are normalized into the strict engine types at this boundary.
type Campaign struct {
	logger      *slog.Logger
	persistence persistence.Persistence
}

func NewCampaign(logger *slog.Logger, persist persistence.Persistence) *Campaign {
	return &Campaign{
		logger:      logger.With("module", "campaign"),
		persistence: persist,
	}
}

// IngestSchemaRequest carries one campaign's authored question list.
type IngestSchemaRequest struct {
	Name      string `validate:"required,min=3"`
	RoleIDs   []string
	Questions []models.AuthoredQuestion
}

// IngestSchema normalizes and stores the authored schema for a campaign,
// replacing any previous version. Malformed questions and rule groups are
// dropped with a warning instead of failing the whole upload.
func (c *Campaign) IngestSchema(ctx context.Context, campaignID string, req IngestSchemaRequest) (*models.Campaign, error) {
	if campaignID == "" {
		return nil, ErrEmptyCampaignID
	}

	if req.Name == "" {
		return nil, ErrCampaignNameRequired
	}

	questions, stepRules := models.NormalizeQuestions(c.logger, req.Questions)

	now := time.Now().UTC()

	campaign := &models.Campaign{
		ID:        campaignID,
		Name:      req.Name,
		RoleIDs:   req.RoleIDs,
		Questions: questions,
		StepRules: stepRules,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Rule targets are validated against the uploaded schema itself; a
	// group pointing at a step with no questions would strand every
	// participant it matches.
	for step, groups := range stepRules {
		for _, group := range groups {
			if group.TargetStep != nil && !campaign.HasStep(*group.TargetStep) {
				return nil, NewValidationError("IngestSchema", "unknown_step",
					fmt.Sprintf("rule group %q on step %d targets step %d, which has no questions", group.ID, step, *group.TargetStep),
					ErrUnknownStep)
			}
		}
	}

	if existing, err := c.persistence.Campaigns().CampaignByID(ctx, campaignID); err == nil {
		campaign.CreatedAt = existing.CreatedAt
	}

	if err := c.persistence.Campaigns().SaveCampaign(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to save campaign: %w", err)
	}

	c.logger.InfoContext(ctx, "Campaign schema ingested",
		"campaign_id", campaignID,
		"questions", len(questions),
		"steps_with_rules", len(stepRules))

	return campaign, nil
}

// CampaignByID returns the stored campaign or persistence.ErrCampaignNotFound.
func (c *Campaign) CampaignByID(ctx context.Context, campaignID string) (*models.Campaign, error) {
	if campaignID == "" {
		return nil, ErrEmptyCampaignID
	}

	return c.persistence.Campaigns().CampaignByID(ctx, campaignID)
}
