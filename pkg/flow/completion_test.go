package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virion-labs/onboardflow/pkg/models"
)

// threeStepCampaign's step 1 routes straight to step 3 for pro plans,
// skipping step 2 entirely.
func threeStepCampaign() *models.Campaign {
	return &models.Campaign{
		ID: "c1",
		Questions: []*models.Question{
			question("plan", 1, true),
			question("company", 2, true),
			question("team_size", 2, true),
			question("billing_email", 3, true),
		},
		StepRules: map[int][]*models.RuleGroup{
			1: {
				equalsRule("pro-skip", intPtr(10), "plan", "pro", intPtr(3)),
			},
		},
	}
}

func TestAnalyzeCompletion_SkippedStepNeverBlocks(t *testing.T) {
	engine := testEngine()
	campaign := threeStepCampaign()

	report := engine.AnalyzeCompletion(campaign, models.ResponseSet{"plan": "pro"})
	require.False(t, report.Complete)
	assert.Equal(t, 3, report.CurrentStep)

	require.Len(t, report.MissingFields, 1)
	assert.Equal(t, "billing_email", report.MissingFields[0].FieldKey)

	// Step 2's required fields are off the reachable path and must not
	// appear in the outstanding batch.
	for _, q := range report.Outstanding {
		assert.NotEqual(t, 2, q.StepNumber)
	}

	report = engine.AnalyzeCompletion(campaign, models.ResponseSet{
		"plan":          "pro",
		"billing_email": "ops@example.com",
	})
	assert.True(t, report.Complete)
	assert.Empty(t, report.MissingFields)
	assert.Empty(t, report.Outstanding)
	assert.Equal(t, 0, report.CurrentStep)
	assert.InDelta(t, 100.0, report.Percentage, 0.001)
}

func TestAnalyzeCompletion_SequentialPathCountsAllSteps(t *testing.T) {
	engine := testEngine()
	campaign := threeStepCampaign()

	// A non-pro plan walks 1 → 2 → 3.
	report := engine.AnalyzeCompletion(campaign, models.ResponseSet{"plan": "basic"})
	require.False(t, report.Complete)
	assert.Equal(t, 2, report.CurrentStep)
	assert.Len(t, report.MissingFields, 2)

	report = engine.AnalyzeCompletion(campaign, models.ResponseSet{
		"plan":      "basic",
		"company":   "Acme",
		"team_size": float64(4),
	})
	require.False(t, report.Complete)
	assert.Equal(t, 3, report.CurrentStep)
	assert.InDelta(t, 75.0, report.Percentage, 0.001)
}

func TestAnalyzeCompletion_EmptySchemaCompletesImmediately(t *testing.T) {
	engine := testEngine()

	report := engine.AnalyzeCompletion(&models.Campaign{ID: "empty"}, models.ResponseSet{})
	assert.True(t, report.Complete)
	assert.Zero(t, report.TotalRequired)
	assert.Zero(t, report.Percentage)
}

func TestAnalyzeCompletion_DisabledQuestionsIgnored(t *testing.T) {
	engine := testEngine()

	disabled := question("hidden", 1, true)
	disabled.Enabled = false

	campaign := &models.Campaign{
		ID:        "c1",
		Questions: []*models.Question{disabled},
	}

	report := engine.AnalyzeCompletion(campaign, models.ResponseSet{})
	assert.True(t, report.Complete)
}

func TestAnalyzeCompletion_OptionalFieldsDoNotBlock(t *testing.T) {
	engine := testEngine()

	campaign := &models.Campaign{
		ID: "c1",
		Questions: []*models.Question{
			question("name", 1, true),
			question("nickname", 1, false),
		},
	}

	report := engine.AnalyzeCompletion(campaign, models.ResponseSet{"name": "Sam"})
	assert.True(t, report.Complete)
	assert.Equal(t, 1, report.TotalRequired)
	assert.Equal(t, 1, report.AnsweredRequired)
}

func TestAnalyzeCompletion_EmptyStringDoesNotSatisfyRequired(t *testing.T) {
	engine := testEngine()

	campaign := &models.Campaign{
		ID:        "c1",
		Questions: []*models.Question{question("name", 1, true)},
	}

	report := engine.AnalyzeCompletion(campaign, models.ResponseSet{"name": "   "})
	assert.False(t, report.Complete)
	require.Len(t, report.MissingFields, 1)
	assert.Equal(t, "name", report.MissingFields[0].FieldKey)
}

func TestAnalyzeCompletion_RuleCycleTerminates(t *testing.T) {
	engine := testEngine()

	campaign := &models.Campaign{
		ID: "c1",
		Questions: []*models.Question{
			question("a", 1, true),
			question("b", 2, true),
		},
		StepRules: map[int][]*models.RuleGroup{
			1: {equalsRule("fwd", intPtr(1), "a", "x", intPtr(2))},
			2: {equalsRule("back", intPtr(1), "b", "y", intPtr(1))},
		},
	}

	report := engine.AnalyzeCompletion(campaign, models.ResponseSet{"a": "x", "b": "y"})
	assert.True(t, report.Complete)
}
