package flow

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/virion-labs/onboardflow/pkg/models"
)

func testEngine() *Engine {
	return NewEngine(slog.New(slog.NewTextHandler(os.Stdout, nil)))
}

func TestEvaluateCondition_Operators(t *testing.T) {
	engine := testEngine()

	responses := models.ResponseSet{
		"age":    float64(17),
		"plan":   "Pro",
		"email":  "user@example.com",
		"agree":  true,
		"tags":   []any{"a", "b"},
		"blank":  "",
		"nested": map[string]any{"x": 1},
	}

	tests := []struct {
		name      string
		condition models.Condition
		expected  bool
	}{
		{
			name:      "equals matches case-insensitively",
			condition: models.Condition{FieldKey: "plan", Operator: models.OperatorEquals, Value: "pro"},
			expected:  true,
		},
		{
			name:      "equals compares numbers numerically",
			condition: models.Condition{FieldKey: "age", Operator: models.OperatorEquals, Value: "17"},
			expected:  true,
		},
		{
			name:      "equals coerces boolean strings",
			condition: models.Condition{FieldKey: "agree", Operator: models.OperatorEquals, Value: "true"},
			expected:  true,
		},
		{
			name:      "not_equals",
			condition: models.Condition{FieldKey: "plan", Operator: models.OperatorNotEquals, Value: "basic"},
			expected:  true,
		},
		{
			name:      "contains substring",
			condition: models.Condition{FieldKey: "email", Operator: models.OperatorContains, Value: "@example"},
			expected:  true,
		},
		{
			name:      "not_contains",
			condition: models.Condition{FieldKey: "email", Operator: models.OperatorNotContains, Value: "@other"},
			expected:  true,
		},
		{
			name:      "greater_than false on equal",
			condition: models.Condition{FieldKey: "age", Operator: models.OperatorGreaterThan, Value: 17},
			expected:  false,
		},
		{
			name:      "greater_than_or_equal below threshold",
			condition: models.Condition{FieldKey: "age", Operator: models.OperatorGreaterThanOrEqual, Value: 18},
			expected:  false,
		},
		{
			name:      "less_than",
			condition: models.Condition{FieldKey: "age", Operator: models.OperatorLessThan, Value: 18},
			expected:  true,
		},
		{
			name:      "less_than_or_equal",
			condition: models.Condition{FieldKey: "age", Operator: models.OperatorLessThanOrEqual, Value: 17},
			expected:  true,
		},
		{
			name:      "in_list coerces entries to strings",
			condition: models.Condition{FieldKey: "plan", Operator: models.OperatorInList, Value: []any{"basic", "pro"}},
			expected:  true,
		},
		{
			name:      "not_in_list",
			condition: models.Condition{FieldKey: "plan", Operator: models.OperatorNotInList, Value: []any{"basic", "free"}},
			expected:  true,
		},
		{
			name:      "array_contains",
			condition: models.Condition{FieldKey: "tags", Operator: models.OperatorArrayContains, Value: "b"},
			expected:  true,
		},
		{
			name:      "array_not_contains",
			condition: models.Condition{FieldKey: "tags", Operator: models.OperatorArrayNotContains, Value: "c"},
			expected:  true,
		},
		{
			name:      "array_length_equals",
			condition: models.Condition{FieldKey: "tags", Operator: models.OperatorArrayLengthEquals, Value: 2},
			expected:  true,
		},
		{
			name:      "array_length_greater",
			condition: models.Condition{FieldKey: "tags", Operator: models.OperatorArrayLengthGreater, Value: 1},
			expected:  true,
		},
		{
			name:      "array_length_less",
			condition: models.Condition{FieldKey: "tags", Operator: models.OperatorArrayLengthLess, Value: 2},
			expected:  false,
		},
		{
			name:      "empty on blank string",
			condition: models.Condition{FieldKey: "blank", Operator: models.OperatorEmpty},
			expected:  true,
		},
		{
			name:      "empty on missing field",
			condition: models.Condition{FieldKey: "missing", Operator: models.OperatorEmpty},
			expected:  true,
		},
		{
			name:      "not_empty on missing field",
			condition: models.Condition{FieldKey: "missing", Operator: models.OperatorNotEmpty},
			expected:  false,
		},
		{
			name:      "not_empty on answered field",
			condition: models.Condition{FieldKey: "plan", Operator: models.OperatorNotEmpty},
			expected:  true,
		},
		{
			name:      "unanswered field fails closed",
			condition: models.Condition{FieldKey: "missing", Operator: models.OperatorEquals, Value: "anything"},
			expected:  false,
		},
		{
			name:      "unknown operator fails closed",
			condition: models.Condition{FieldKey: "plan", Operator: "regex_match", Value: ".*"},
			expected:  false,
		},
		{
			name:      "numeric comparison on non-numeric response fails closed",
			condition: models.Condition{FieldKey: "plan", Operator: models.OperatorGreaterThan, Value: 1},
			expected:  false,
		},
		{
			name:      "array operator on scalar response fails closed",
			condition: models.Condition{FieldKey: "plan", Operator: models.OperatorArrayContains, Value: "pro"},
			expected:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, engine.EvaluateCondition(tt.condition, responses))
		})
	}
}

func TestEvaluateGroup_LeftToRightFold(t *testing.T) {
	engine := testEngine()

	responses := models.ResponseSet{
		"a": "1",
		"b": "2",
		"c": "3",
	}

	cond := func(key, want string) models.Condition {
		return models.Condition{FieldKey: key, Operator: models.OperatorEquals, Value: want}
	}

	// (false OR true) AND true = true; with precedence it would be
	// false OR (true AND true) = true too, so also check a case where
	// the two semantics disagree: (true OR false) AND false.
	group := &models.RuleGroup{
		Conditions: []models.ConditionTerm{
			{Condition: cond("a", "1"), Combinator: models.CombinatorOr},
			{Condition: cond("b", "wrong"), Combinator: models.CombinatorAnd},
			{Condition: cond("c", "wrong")},
		},
	}
	assert.False(t, engine.evaluateGroup(group, responses))

	group = &models.RuleGroup{
		Conditions: []models.ConditionTerm{
			{Condition: cond("a", "wrong"), Combinator: models.CombinatorOr},
			{Condition: cond("b", "2"), Combinator: models.CombinatorAnd},
			{Condition: cond("c", "3")},
		},
	}
	assert.True(t, engine.evaluateGroup(group, responses))

	// Empty groups never match.
	assert.False(t, engine.evaluateGroup(&models.RuleGroup{}, responses))
}
