package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/virion-labs/onboardflow/pkg/models"
	"github.com/virion-labs/onboardflow/pkg/persistence"
)

// CampaignRepository handles campaign-related database operations.
type CampaignRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewCampaignRepository creates a new campaign repository.
func NewCampaignRepository(db *sql.DB, logger *slog.Logger) *CampaignRepository {
	return &CampaignRepository{db: db, logger: logger}
}

// CampaignByID returns a campaign by its ID.
func (r *CampaignRepository) CampaignByID(ctx context.Context, id string) (*models.Campaign, error) {
	query := `
		SELECT
			id
		  , name
		  , role_ids
		  , questions
		  , step_rules
		  , created_at
		  , updated_at
		FROM campaigns
		WHERE id = $1
	`

	campaign, err := r.scanCampaign(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrCampaignNotFound
		}

		return nil, fmt.Errorf("failed to scan campaign: %w", err)
	}

	return campaign, nil
}

// Campaigns returns all campaigns ordered by creation time.
func (r *CampaignRepository) Campaigns(ctx context.Context) ([]*models.Campaign, error) {
	query := `
		SELECT
			id
		  , name
		  , role_ids
		  , questions
		  , step_rules
		  , created_at
		  , updated_at
		FROM campaigns
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	campaigns := make([]*models.Campaign, 0)

	for rows.Next() {
		campaign, err := r.scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}

		campaigns = append(campaigns, campaign)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating campaigns: %w", err)
	}

	return campaigns, nil
}

// SaveCampaign upserts a campaign together with its question schema and
// step rules, serialized as JSONB.
func (r *CampaignRepository) SaveCampaign(ctx context.Context, campaign *models.Campaign) error {
	now := time.Now().UTC()

	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = now
	}

	campaign.UpdatedAt = now

	roleIDsJSON, err := json.Marshal(campaign.RoleIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal role ids: %w", err)
	}

	questionsJSON, err := json.Marshal(campaign.Questions)
	if err != nil {
		return fmt.Errorf("failed to marshal questions: %w", err)
	}

	stepRulesJSON, err := json.Marshal(campaign.StepRules)
	if err != nil {
		return fmt.Errorf("failed to marshal step rules: %w", err)
	}

	query := `
		INSERT INTO campaigns (id, name, role_ids, questions, step_rules, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			role_ids = EXCLUDED.role_ids,
			questions = EXCLUDED.questions,
			step_rules = EXCLUDED.step_rules,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		campaign.ID,
		campaign.Name,
		roleIDsJSON,
		questionsJSON,
		stepRulesJSON,
		campaign.CreatedAt,
		campaign.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save campaign: %w", err)
	}

	return nil
}

// DeleteCampaign removes a campaign. Deleting a missing campaign is not
// an error.
func (r *CampaignRepository) DeleteCampaign(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM campaigns WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}

	return nil
}

func (r *CampaignRepository) scanCampaign(scanner interface {
	Scan(dest ...any) error
}) (*models.Campaign, error) {
	var (
		campaign                               models.Campaign
		roleIDsJSON, questionsJSON, stepRulesJSON []byte
	)

	err := scanner.Scan(
		&campaign.ID,
		&campaign.Name,
		&roleIDsJSON,
		&questionsJSON,
		&stepRulesJSON,
		&campaign.CreatedAt,
		&campaign.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if roleIDsJSON != nil {
		err := json.Unmarshal(roleIDsJSON, &campaign.RoleIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal role ids: %w", err)
		}
	}

	if questionsJSON != nil {
		err := json.Unmarshal(questionsJSON, &campaign.Questions)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal questions: %w", err)
		}
	}

	if stepRulesJSON != nil {
		err := json.Unmarshal(stepRulesJSON, &campaign.StepRules)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal step rules: %w", err)
		}
	}

	return &campaign, nil
}
