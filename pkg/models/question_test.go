package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func campaignFixture() *Campaign {
	return &Campaign{
		ID:   "c1",
		Name: "Creator onboarding",
		Questions: []*Question{
			{FieldKey: "b_field", FieldType: FieldTypeText, StepNumber: 1, SortOrder: 1, Enabled: true},
			{FieldKey: "a_field", FieldType: FieldTypeText, StepNumber: 1, SortOrder: 1, Enabled: true},
			{FieldKey: "first", FieldType: FieldTypeText, StepNumber: 1, SortOrder: 0, Enabled: true},
			{FieldKey: "later", FieldType: FieldTypeText, StepNumber: 3, Enabled: true},
			{FieldKey: "hidden", FieldType: FieldTypeText, StepNumber: 2, Enabled: false},
		},
	}
}

func TestCampaign_Steps(t *testing.T) {
	c := campaignFixture()

	// Step 2 only has a disabled question and must not count.
	assert.Equal(t, []int{1, 3}, c.Steps())
	assert.Equal(t, 1, c.FirstStep())
	assert.True(t, c.HasStep(3))
	assert.False(t, c.HasStep(2))

	next, ok := c.NextStepAfter(1)
	require.True(t, ok)
	assert.Equal(t, 3, next)

	_, ok = c.NextStepAfter(3)
	assert.False(t, ok)
}

func TestCampaign_QuestionsForStepOrdering(t *testing.T) {
	c := campaignFixture()

	questions := c.QuestionsForStep(1)
	require.Len(t, questions, 3)
	assert.Equal(t, "first", questions[0].FieldKey)
	assert.Equal(t, "a_field", questions[1].FieldKey)
	assert.Equal(t, "b_field", questions[2].FieldKey)
}

func TestCampaign_EmptySchema(t *testing.T) {
	c := &Campaign{ID: "empty", Name: "Empty"}

	assert.Equal(t, 0, c.FirstStep())
	assert.False(t, c.HasEnabledQuestions())
}

func TestQuestion_HasOption(t *testing.T) {
	q := &Question{
		FieldKey:  "plan",
		FieldType: FieldTypeSelect,
		Options: []FieldOption{
			{Label: "Basic", Value: "basic"},
			{Label: "Pro", Value: "pro"},
		},
	}

	assert.True(t, q.HasOption("pro"))
	assert.False(t, q.HasOption("enterprise"))

	// Questions without options accept anything.
	free := &Question{FieldKey: "name", FieldType: FieldTypeText}
	assert.True(t, free.HasOption("whatever"))
}

func TestSortRuleGroups(t *testing.T) {
	five, ten := 5, 10

	groups := []*RuleGroup{
		{ID: "none"},
		{ID: "five", Priority: &five},
		{ID: "ten", Priority: &ten},
		{ID: "none-2"},
	}

	sorted := SortRuleGroups(groups)

	assert.Equal(t, "ten", sorted[0].ID)
	assert.Equal(t, "five", sorted[1].ID)
	// Undefined priority sorts lowest, stable on authoring order.
	assert.Equal(t, "none", sorted[2].ID)
	assert.Equal(t, "none-2", sorted[3].ID)

	// Input order untouched.
	assert.Equal(t, "none", groups[0].ID)
}
