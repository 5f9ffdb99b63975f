package models

import (
	"math"
	"sort"
)

// Operator is a comparison operator usable inside a branching condition.
type Operator string

const (
	OperatorEquals             Operator = "equals"
	OperatorNotEquals          Operator = "not_equals"
	OperatorContains           Operator = "contains"
	OperatorNotContains        Operator = "not_contains"
	OperatorEmpty              Operator = "empty"
	OperatorNotEmpty           Operator = "not_empty"
	OperatorGreaterThan        Operator = "greater_than"
	OperatorLessThan           Operator = "less_than"
	OperatorGreaterThanOrEqual Operator = "greater_than_or_equal"
	OperatorLessThanOrEqual    Operator = "less_than_or_equal"
	OperatorInList             Operator = "in_list"
	OperatorNotInList          Operator = "not_in_list"
	OperatorArrayContains      Operator = "array_contains"
	OperatorArrayNotContains   Operator = "array_not_contains"
	OperatorArrayLengthEquals  Operator = "array_length_equals"
	OperatorArrayLengthGreater Operator = "array_length_greater_than"
	OperatorArrayLengthLess    Operator = "array_length_less_than"
)

// ValidOperator reports whether op is a known condition operator.
func ValidOperator(op Operator) bool {
	switch op {
	case OperatorEquals, OperatorNotEquals, OperatorContains, OperatorNotContains,
		OperatorEmpty, OperatorNotEmpty,
		OperatorGreaterThan, OperatorLessThan,
		OperatorGreaterThanOrEqual, OperatorLessThanOrEqual,
		OperatorInList, OperatorNotInList,
		OperatorArrayContains, OperatorArrayNotContains,
		OperatorArrayLengthEquals, OperatorArrayLengthGreater, OperatorArrayLengthLess:
		return true
	default:
		return false
	}
}

// Combinator joins a condition to the one that follows it in a group.
type Combinator string

const (
	CombinatorAnd Combinator = "AND"
	CombinatorOr  Combinator = "OR"
)

// Condition tests one response value against an operator and operand.
type Condition struct {
	FieldKey string   `json:"field_key"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value,omitempty"`
}

// ConditionTerm is a condition plus the combinator that joins it to the
// next term. The authoring format attaches the combinator to the trailing
// edge of each condition; groups are folded strictly left-to-right with no
// precedence between AND and OR. The combinator of the last term is unused.
type ConditionTerm struct {
	Condition  Condition  `json:"condition"`
	Combinator Combinator `json:"combinator,omitempty"`
}

// RuleGroup is one branching rule attached to a step. Groups are evaluated
// in priority order (higher first, authoring order on ties); the first
// group whose conditions hold decides the next step.
type RuleGroup struct {
	ID          string          `json:"id"`
	Priority    *int            `json:"priority,omitempty"` // nil sorts lowest
	Description string          `json:"description,omitempty"`
	Conditions  []ConditionTerm `json:"conditions"`
	TargetStep  *int            `json:"target_step,omitempty"` // nil means next sequential step
}

// priorityValue returns the effective priority for sorting. Groups without
// an explicit priority sort below every group that has one.
func (g *RuleGroup) priorityValue() int {
	if g.Priority == nil {
		return math.MinInt
	}

	return *g.Priority
}

// SortRuleGroups orders groups by priority descending, stable on the
// original authoring order for ties. The input slice is not modified.
func SortRuleGroups(groups []*RuleGroup) []*RuleGroup {
	sorted := make([]*RuleGroup, len(groups))
	copy(sorted, groups)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].priorityValue() > sorted[j].priorityValue()
	})

	return sorted
}
