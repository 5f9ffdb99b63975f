package flow

import (
	"github.com/virion-labs/onboardflow/pkg/models"
)

// ResolveNextStep decides which step follows currentStep given the
// responses collected so far. Rule groups are evaluated in priority order
// (higher first, stable on authoring order); the first group whose
// conditions hold wins. A nil target on the winning group, or no matching
// group at all, advances to the next sequentially-numbered step with
// enabled questions. The second return value is false when the flow has no
// further step and is therefore complete.
func (e *Engine) ResolveNextStep(campaign *models.Campaign, currentStep int, responses models.ResponseSet) (int, bool) {
	for _, group := range models.SortRuleGroups(campaign.RulesForStep(currentStep)) {
		if !e.evaluateGroup(group, responses) {
			continue
		}

		if group.TargetStep == nil {
			break
		}

		if !campaign.HasStep(*group.TargetStep) {
			// Malformed authoring data; skip the rule and keep going as
			// if it were absent.
			e.logger.Warn("Branching rule targets unknown step",
				"rule_group", group.ID, "target_step", *group.TargetStep, "campaign_id", campaign.ID)

			continue
		}

		return *group.TargetStep, true
	}

	return campaign.NextStepAfter(currentStep)
}
