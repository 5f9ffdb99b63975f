// Package flow implements the branching logic of onboarding flows: pure,
// synchronous evaluation of conditions, next-step resolution, and
// completion analysis over already-fetched data.
package flow

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/virion-labs/onboardflow/pkg/models"
)

// Engine evaluates branching conditions against a participant's responses.
// All methods are side-effect free apart from logging.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates a flow engine.
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{logger: logger.With("module", "flow")}
}

// EvaluateCondition evaluates a single condition against the response set.
// A condition referencing a field with no response yet fails closed, with
// the exception of the empty/not_empty operators which are defined to test
// absence. Malformed operands never error; they make the condition false.
func (e *Engine) EvaluateCondition(cond models.Condition, responses models.ResponseSet) bool {
	response, answered := responses[cond.FieldKey]

	switch cond.Operator {
	case models.OperatorEmpty:
		return !answered || isEmptyValue(response)
	case models.OperatorNotEmpty:
		return answered && !isEmptyValue(response)
	}

	if !answered {
		return false
	}

	switch cond.Operator {
	case models.OperatorEquals:
		return valuesEqual(response, cond.Value)
	case models.OperatorNotEquals:
		return !valuesEqual(response, cond.Value)
	case models.OperatorContains:
		return strings.Contains(foldString(response), foldString(cond.Value))
	case models.OperatorNotContains:
		return !strings.Contains(foldString(response), foldString(cond.Value))
	case models.OperatorGreaterThan:
		return compareNumeric(response, cond.Value, func(a, b float64) bool { return a > b })
	case models.OperatorLessThan:
		return compareNumeric(response, cond.Value, func(a, b float64) bool { return a < b })
	case models.OperatorGreaterThanOrEqual:
		return compareNumeric(response, cond.Value, func(a, b float64) bool { return a >= b })
	case models.OperatorLessThanOrEqual:
		return compareNumeric(response, cond.Value, func(a, b float64) bool { return a <= b })
	case models.OperatorInList:
		return listContains(cond.Value, response)
	case models.OperatorNotInList:
		return !listContains(cond.Value, response)
	case models.OperatorArrayContains:
		return arrayContains(response, cond.Value)
	case models.OperatorArrayNotContains:
		return !arrayContains(response, cond.Value)
	case models.OperatorArrayLengthEquals:
		return compareArrayLength(response, cond.Value, func(l, n int) bool { return l == n })
	case models.OperatorArrayLengthGreater:
		return compareArrayLength(response, cond.Value, func(l, n int) bool { return l > n })
	case models.OperatorArrayLengthLess:
		return compareArrayLength(response, cond.Value, func(l, n int) bool { return l < n })
	default:
		// Authoring data may be malformed; an unknown operator is a
		// non-match, never a fatal error.
		e.logger.Warn("Unknown condition operator",
			"operator", string(cond.Operator), "field_key", cond.FieldKey)

		return false
	}
}

// evaluateGroup folds a group's condition terms strictly left-to-right
// using each term's trailing combinator, with no precedence between AND
// and OR: ((c1 op1 c2) op2 c3).
func (e *Engine) evaluateGroup(group *models.RuleGroup, responses models.ResponseSet) bool {
	if len(group.Conditions) == 0 {
		return false
	}

	result := e.EvaluateCondition(group.Conditions[0].Condition, responses)

	for i := 1; i < len(group.Conditions); i++ {
		next := e.EvaluateCondition(group.Conditions[i].Condition, responses)

		switch group.Conditions[i-1].Combinator {
		case models.CombinatorOr:
			result = result || next
		default:
			result = result && next
		}
	}

	return result
}

// valuesEqual coerces both sides to a common primitive type before
// comparing: numbers numerically, booleans via "true"/"false" strings,
// everything else as case-insensitive strings.
func valuesEqual(response, operand any) bool {
	if a, aok := toFloat(response); aok {
		if b, bok := toFloat(operand); bok {
			return a == b
		}
	}

	if a, aok := toBool(response); aok {
		if b, bok := toBool(operand); bok {
			return a == b
		}
	}

	return strings.EqualFold(coerceString(response), coerceString(operand))
}

func compareNumeric(response, operand any, cmp func(a, b float64) bool) bool {
	a, aok := toFloat(response)
	b, bok := toFloat(operand)

	if !aok || !bok {
		return false
	}

	return cmp(a, b)
}

// listContains tests membership of response within an operand list, with
// both sides coerced to strings.
func listContains(operand, response any) bool {
	list, ok := toSlice(operand)
	if !ok {
		return false
	}

	needle := coerceString(response)

	for _, entry := range list {
		if strings.EqualFold(coerceString(entry), needle) {
			return true
		}
	}

	return false
}

// arrayContains tests membership of the operand within an array response.
func arrayContains(response, operand any) bool {
	array, ok := toSlice(response)
	if !ok {
		return false
	}

	needle := coerceString(operand)

	for _, entry := range array {
		if strings.EqualFold(coerceString(entry), needle) {
			return true
		}
	}

	return false
}

func compareArrayLength(response, operand any, cmp func(length, n int) bool) bool {
	array, ok := toSlice(response)
	if !ok {
		return false
	}

	n, ok := toFloat(operand)
	if !ok {
		return false
	}

	return cmp(len(array), int(n))
}

func isEmptyValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	default:
		return false
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}

		return f, true
	default:
		return 0, false
	}
}

func toBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(v)))
		if err != nil {
			return false, false
		}

		return b, true
	default:
		return false, false
	}
}

func toSlice(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}

		return out, true
	default:
		return nil, false
	}
}

func coerceString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func foldString(value any) string {
	return strings.ToLower(coerceString(value))
}
