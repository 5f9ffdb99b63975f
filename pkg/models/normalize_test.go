package models

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func TestNormalizeQuestions_DropsMalformedEntries(t *testing.T) {
	authored := []AuthoredQuestion{
		{FieldKey: "name", FieldLabel: "Name", FieldType: "text", StepNumber: 1, Enabled: true, Required: true},
		{FieldKey: "", FieldLabel: "No key", FieldType: "text", StepNumber: 1, Enabled: true},
		{FieldKey: "weird", FieldLabel: "Weird", FieldType: "hologram", StepNumber: 1, Enabled: true},
		{FieldKey: "early", FieldLabel: "Early", FieldType: "text", StepNumber: 0, Enabled: true},
		{FieldKey: "email", FieldLabel: "Email", FieldType: "EMAIL", StepNumber: 2, Enabled: true},
	}

	questions, stepRules := NormalizeQuestions(testLogger(), authored)

	require.Len(t, questions, 2)
	assert.Equal(t, "name", questions[0].FieldKey)
	assert.Equal(t, "email", questions[1].FieldKey)
	assert.Equal(t, FieldTypeEmail, questions[1].FieldType)
	assert.Empty(t, stepRules)
}

func TestNormalizeQuestions_FirstQuestionSuppliesStepRules(t *testing.T) {
	logic := []any{
		map[string]any{
			"priority":    10,
			"target_step": 3,
			"condition": map[string]any{
				"field_key": "plan",
				"operator":  "equals",
				"value":     "pro",
			},
		},
	}

	otherLogic := []any{
		map[string]any{
			"target_step": 2,
			"condition": map[string]any{
				"field_key": "plan",
				"operator":  "equals",
				"value":     "basic",
			},
		},
	}

	authored := []AuthoredQuestion{
		{FieldKey: "plan", FieldType: "select", StepNumber: 1, Enabled: true, BranchingLogic: logic},
		{FieldKey: "name", FieldType: "text", StepNumber: 1, Enabled: true, BranchingLogic: otherLogic},
	}

	_, stepRules := NormalizeQuestions(testLogger(), authored)

	require.Len(t, stepRules, 1)
	require.Len(t, stepRules[1], 1)

	group := stepRules[1][0]
	require.NotNil(t, group.Priority)
	assert.Equal(t, 10, *group.Priority)
	require.NotNil(t, group.TargetStep)
	assert.Equal(t, 3, *group.TargetStep)
	require.Len(t, group.Conditions, 1)
	assert.Equal(t, OperatorEquals, group.Conditions[0].Condition.Operator)
}

func TestNormalizeRuleGroups(t *testing.T) {
	raw := []any{
		// condition-list shape with per-condition logic
		map[string]any{
			"id":          "rule-1",
			"description": "route enterprise",
			"conditions": []any{
				map[string]any{"field_key": "plan", "operator": "equals", "value": "enterprise", "logic": "OR"},
				map[string]any{"field_key": "seats", "operator": "greater_than", "value": 50},
			},
			"target_step": 4,
		},
		// malformed: condition without field_key
		map[string]any{
			"condition": map[string]any{"operator": "equals", "value": "x"},
		},
		// not an object at all
		"garbage",
		// no conditions
		map[string]any{"target_step": 2},
	}

	groups := NormalizeRuleGroups(testLogger(), raw)

	require.Len(t, groups, 1)
	group := groups[0]
	assert.Equal(t, "rule-1", group.ID)
	require.Len(t, group.Conditions, 2)
	assert.Equal(t, CombinatorOr, group.Conditions[0].Combinator)
	assert.Equal(t, CombinatorAnd, group.Conditions[1].Combinator)
}

func TestNormalizeRuleGroups_GeneratesIDAndKeepsUnknownOperator(t *testing.T) {
	raw := []any{
		map[string]any{
			"condition": map[string]any{"field_key": "plan", "operator": "regex_match", "value": ".*"},
		},
	}

	groups := NormalizeRuleGroups(testLogger(), raw)

	require.Len(t, groups, 1)
	assert.NotEmpty(t, groups[0].ID)
	assert.Equal(t, Operator("regex_match"), groups[0].Conditions[0].Condition.Operator)
}
