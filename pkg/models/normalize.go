package models

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

// AuthoredQuestion is the loose question payload produced by the external
// flow editor. Field values may be partially malformed; normalization
// validates them into the strict model types and drops what cannot be
// repaired.
type AuthoredQuestion struct {
	FieldKey       string        `json:"field_key"`
	FieldLabel     string        `json:"field_label"`
	FieldType      string        `json:"field_type"`
	StepNumber     int           `json:"step_number"`
	SortOrder      int           `json:"sort_order"`
	Required       bool          `json:"is_required"`
	Enabled        bool          `json:"is_enabled"`
	Options        []FieldOption `json:"field_options,omitempty"`
	BranchingLogic []any         `json:"branching_logic,omitempty"`
}

// ruleGroupSchema is the shape a single authored rule group must satisfy
// before it is admitted into the engine. Anything failing validation is
// logged and discarded at this boundary rather than propagated into the
// evaluator.
const ruleGroupSchema = `{
	"type": "object",
	"properties": {
		"id": {"type": "string"},
		"priority": {"type": "integer"},
		"description": {"type": "string"},
		"target_step": {"type": ["integer", "null"]},
		"condition": {"$ref": "#/definitions/condition"},
		"conditions": {
			"type": "array",
			"items": {"$ref": "#/definitions/condition"}
		}
	},
	"definitions": {
		"condition": {
			"type": "object",
			"required": ["field_key", "operator"],
			"properties": {
				"field_key": {"type": "string", "minLength": 1},
				"operator": {"type": "string", "minLength": 1},
				"value": {},
				"logic": {"type": "string", "enum": ["AND", "OR", "and", "or"]}
			}
		}
	}
}`

// NormalizeQuestions converts editor payloads into the strict schema plus
// the per-step branching rules. All questions of a step share the step's
// rule groups; the first question in authoring order that carries
// branching logic supplies them.
func NormalizeQuestions(logger *slog.Logger, authored []AuthoredQuestion) ([]*Question, map[int][]*RuleGroup) {
	questions := make([]*Question, 0, len(authored))
	stepRules := make(map[int][]*RuleGroup)

	for _, a := range authored {
		if a.FieldKey == "" {
			logger.Warn("Dropping authored question without field_key", "field_label", a.FieldLabel)

			continue
		}

		fieldType := FieldType(strings.ToLower(a.FieldType))
		if !ValidFieldType(fieldType) {
			logger.Warn("Dropping authored question with unknown field type",
				"field_key", a.FieldKey, "field_type", a.FieldType)

			continue
		}

		if a.StepNumber < 1 {
			logger.Warn("Dropping authored question with invalid step number",
				"field_key", a.FieldKey, "step_number", a.StepNumber)

			continue
		}

		questions = append(questions, &Question{
			FieldKey:   a.FieldKey,
			FieldLabel: a.FieldLabel,
			FieldType:  fieldType,
			StepNumber: a.StepNumber,
			SortOrder:  a.SortOrder,
			Required:   a.Required,
			Enabled:    a.Enabled,
			Options:    a.Options,
		})

		if len(a.BranchingLogic) == 0 {
			continue
		}

		if _, exists := stepRules[a.StepNumber]; exists {
			logger.Debug("Ignoring duplicate branching logic for step",
				"step_number", a.StepNumber, "field_key", a.FieldKey)

			continue
		}

		groups := NormalizeRuleGroups(logger, a.BranchingLogic)
		if len(groups) > 0 {
			stepRules[a.StepNumber] = groups
		}
	}

	return questions, stepRules
}

// NormalizeRuleGroups validates loose rule group payloads and converts the
// well-formed ones into RuleGroups. Malformed groups and conditions are
// logged and skipped.
func NormalizeRuleGroups(logger *slog.Logger, raw []any) []*RuleGroup {
	schemaLoader := gojsonschema.NewStringLoader(ruleGroupSchema)

	groups := make([]*RuleGroup, 0, len(raw))

	for i, entry := range raw {
		payload, ok := entry.(map[string]any)
		if !ok {
			logger.Warn("Dropping branching rule group with unexpected shape", "index", i)

			continue
		}

		result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(payload))
		if err != nil {
			logger.Warn("Failed to validate branching rule group", "index", i, "error", err)

			continue
		}

		if !result.Valid() {
			details := make([]string, 0, len(result.Errors()))
			for _, desc := range result.Errors() {
				details = append(details, desc.String())
			}

			logger.Warn("Dropping invalid branching rule group",
				"index", i, "errors", strings.Join(details, "; "))

			continue
		}

		group := convertRuleGroup(logger, payload)
		if group == nil {
			continue
		}

		groups = append(groups, group)
	}

	return groups
}

func convertRuleGroup(logger *slog.Logger, payload map[string]any) *RuleGroup {
	group := &RuleGroup{}

	if id, ok := payload["id"].(string); ok {
		group.ID = id
	}

	if group.ID == "" {
		group.ID = generatedGroupID()
	}

	if desc, ok := payload["description"].(string); ok {
		group.Description = desc
	}

	if priority, ok := toInt(payload["priority"]); ok {
		group.Priority = &priority
	}

	if target, ok := toInt(payload["target_step"]); ok {
		group.TargetStep = &target
	}

	// Single-condition and condition-list shapes are both authored; a
	// single condition becomes a one-term group.
	if single, ok := payload["condition"].(map[string]any); ok {
		if term, ok := convertConditionTerm(logger, group.ID, single); ok {
			group.Conditions = append(group.Conditions, term)
		}
	}

	if list, ok := payload["conditions"].([]any); ok {
		for _, entry := range list {
			conditionPayload, ok := entry.(map[string]any)
			if !ok {
				logger.Warn("Dropping malformed condition entry", "rule_group", group.ID)

				continue
			}

			if term, ok := convertConditionTerm(logger, group.ID, conditionPayload); ok {
				group.Conditions = append(group.Conditions, term)
			}
		}
	}

	if len(group.Conditions) == 0 {
		logger.Warn("Dropping branching rule group without usable conditions", "rule_group", group.ID)

		return nil
	}

	return group
}

func convertConditionTerm(logger *slog.Logger, groupID string, payload map[string]any) (ConditionTerm, bool) {
	fieldKey, _ := payload["field_key"].(string)
	if fieldKey == "" {
		logger.Warn("Dropping condition without field_key", "rule_group", groupID)

		return ConditionTerm{}, false
	}

	operator, _ := payload["operator"].(string)

	term := ConditionTerm{
		Condition: Condition{
			FieldKey: fieldKey,
			Operator: Operator(strings.ToLower(operator)),
			Value:    payload["value"],
		},
		Combinator: CombinatorAnd,
	}

	if logic, ok := payload["logic"].(string); ok && strings.EqualFold(logic, string(CombinatorOr)) {
		term.Combinator = CombinatorOr
	}

	// Unknown operators pass through; the evaluator treats them as
	// non-matching.
	if !ValidOperator(term.Condition.Operator) {
		logger.Warn("Keeping condition with unknown operator",
			"rule_group", groupID, "field_key", fieldKey, "operator", operator)
	}

	return term, true
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}

		return 0, false
	default:
		return 0, false
	}
}

func generatedGroupID() string {
	return "rule-" + uuid.NewString()
}
