package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"time"

	"github.com/virion-labs/onboardflow/pkg/models"
	"github.com/virion-labs/onboardflow/pkg/persistence"
)

// CampaignRepository stores each campaign as one JSON file under
// <root>/campaigns.
type CampaignRepository struct {
	root string
}

// NewCampaignRepository creates a new campaign repository.
func NewCampaignRepository(root string) *CampaignRepository {
	return &CampaignRepository{root: root}
}

func (cr *CampaignRepository) dir() string {
	return path.Join(cr.root, "campaigns")
}

func (cr *CampaignRepository) filePath(id string) string {
	return path.Join(cr.dir(), id+".json")
}

// CampaignByID returns a campaign by its ID.
func (cr *CampaignRepository) CampaignByID(_ context.Context, id string) (*models.Campaign, error) {
	data, err := os.ReadFile(cr.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrCampaignNotFound
		}

		return nil, fmt.Errorf("failed to read campaign file: %w", err)
	}

	var campaign models.Campaign

	err = json.Unmarshal(data, &campaign)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal campaign %s: %w", id, err)
	}

	return &campaign, nil
}

// Campaigns returns all stored campaigns ordered by creation time,
// newest first.
func (cr *CampaignRepository) Campaigns(ctx context.Context) ([]*models.Campaign, error) {
	entries, err := fs.Glob(os.DirFS(cr.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list campaign files: %w", err)
	}

	campaigns := make([]*models.Campaign, 0, len(entries))

	for _, entry := range entries {
		id := entry[:len(entry)-len(".json")]

		campaign, err := cr.CampaignByID(ctx, id)
		if err != nil {
			return nil, err
		}

		campaigns = append(campaigns, campaign)
	}

	sort.Slice(campaigns, func(i, j int) bool {
		return campaigns[i].CreatedAt.After(campaigns[j].CreatedAt)
	})

	return campaigns, nil
}

// SaveCampaign writes the campaign as a JSON file.
func (cr *CampaignRepository) SaveCampaign(_ context.Context, campaign *models.Campaign) error {
	now := time.Now().UTC()

	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = now
	}

	campaign.UpdatedAt = now

	err := os.MkdirAll(cr.dir(), 0o755)
	if err != nil {
		return fmt.Errorf("failed to create campaigns directory: %w", err)
	}

	data, err := json.MarshalIndent(campaign, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal campaign: %w", err)
	}

	err = os.WriteFile(cr.filePath(campaign.ID), data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write campaign file: %w", err)
	}

	return nil
}

// DeleteCampaign removes the campaign file. Deleting a missing campaign
// is not an error.
func (cr *CampaignRepository) DeleteCampaign(_ context.Context, id string) error {
	err := os.Remove(cr.filePath(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete campaign file: %w", err)
	}

	return nil
}
