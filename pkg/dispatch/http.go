package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/virion-labs/onboardflow/pkg/models"
)

const defaultRequestTimeout = 10 * time.Second

// HTTPTargets talks to the external role, analytics and referral services
// over plain JSON endpoints. A single instance implements all three
// dispatcher interfaces; empty base URLs disable the corresponding target.
type HTTPTargets struct {
	client       *http.Client
	rolesURL     string
	analyticsURL string
	referralURL  string
}

func NewHTTPTargets(rolesURL, analyticsURL, referralURL string) *HTTPTargets {
	return &HTTPTargets{
		client:       &http.Client{Timeout: defaultRequestTimeout},
		rolesURL:     rolesURL,
		analyticsURL: analyticsURL,
		referralURL:  referralURL,
	}
}

func (t *HTTPTargets) AssignRole(ctx context.Context, campaignID, participantID, roleID string) error {
	if t.rolesURL == "" {
		return nil
	}

	return t.post(ctx, t.rolesURL, map[string]string{
		"campaign_id":    campaignID,
		"participant_id": participantID,
		"role_id":        roleID,
	})
}

func (t *HTTPTargets) LogCompletion(ctx context.Context, session *models.OnboardingSession) error {
	if t.analyticsURL == "" {
		return nil
	}

	payload := map[string]any{
		"campaign_id":    session.CampaignID,
		"participant_id": session.ParticipantID,
		"session_id":     session.ID,
		"completed_at":   session.CompletedAt,
		"responses":      session.Responses,
	}

	return t.post(ctx, t.analyticsURL, payload)
}

func (t *HTTPTargets) RecordConversion(ctx context.Context, participantID string, referral *models.ReferralContext) error {
	if t.referralURL == "" {
		return nil
	}

	return t.post(ctx, t.referralURL, map[string]string{
		"participant_id": participantID,
		"referral_code":  referral.Code,
		"link_id":        referral.LinkID,
	})
}

func (t *HTTPTargets) post(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	return nil
}
