// Package models defines the core domain models for campaign onboarding flows.
package models

import (
	"sort"
	"time"
)

// FieldType identifies the value type collected by a question.
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeEmail       FieldType = "email"
	FieldTypeNumber      FieldType = "number"
	FieldTypeBoolean     FieldType = "boolean"
	FieldTypeURL         FieldType = "url"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiSelect FieldType = "multiselect"
)

// ValidFieldType reports whether t is one of the supported field types.
func ValidFieldType(t FieldType) bool {
	switch t {
	case FieldTypeText, FieldTypeEmail, FieldTypeNumber, FieldTypeBoolean,
		FieldTypeURL, FieldTypeSelect, FieldTypeMultiSelect:
		return true
	default:
		return false
	}
}

// FieldOption is a single selectable choice for select/multiselect questions.
type FieldOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Question is one field collected during onboarding. Questions are grouped
// into numbered steps; branching rules attach to the step as a whole.
type Question struct {
	FieldKey   string        `json:"field_key"   validate:"required"`
	FieldLabel string        `json:"field_label"`
	FieldType  FieldType     `json:"field_type"  validate:"required"`
	StepNumber int           `json:"step_number" validate:"min=1"`
	SortOrder  int           `json:"sort_order"`
	Required   bool          `json:"is_required"`
	Enabled    bool          `json:"is_enabled"`
	Options    []FieldOption `json:"field_options,omitempty"`
}

// HasOption reports whether value matches one of the question's options.
// Questions without options accept any value.
func (q *Question) HasOption(value string) bool {
	if len(q.Options) == 0 {
		return true
	}

	for _, opt := range q.Options {
		if opt.Value == value {
			return true
		}
	}

	return false
}

// ResponseSet maps field keys to the participant's submitted values.
type ResponseSet map[string]any

// ReferralContext carries the referral used to join a campaign through to
// completion, where the conversion is recorded.
type ReferralContext struct {
	Code   string `json:"code"`
	LinkID string `json:"link_id,omitempty"`
}

// Campaign owns an ordered question schema and the branching rules between
// its steps.
type Campaign struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"       validate:"required,min=3"`
	RoleIDs   []string             `json:"role_ids,omitempty"` // roles granted on completion
	Questions []*Question          `json:"questions"`
	StepRules map[int][]*RuleGroup `json:"step_rules,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// Steps returns the distinct step numbers that contain enabled questions,
// in ascending order.
func (c *Campaign) Steps() []int {
	seen := make(map[int]bool)

	var steps []int

	for _, q := range c.Questions {
		if !q.Enabled || seen[q.StepNumber] {
			continue
		}

		seen[q.StepNumber] = true

		steps = append(steps, q.StepNumber)
	}

	sort.Ints(steps)

	return steps
}

// FirstStep returns the lowest step number with enabled questions, or 0
// when the campaign has nothing to collect.
func (c *Campaign) FirstStep() int {
	steps := c.Steps()
	if len(steps) == 0 {
		return 0
	}

	return steps[0]
}

// NextStepAfter returns the next sequentially-numbered step with enabled
// questions after the given step. The second return value is false when no
// further step exists.
func (c *Campaign) NextStepAfter(step int) (int, bool) {
	for _, s := range c.Steps() {
		if s > step {
			return s, true
		}
	}

	return 0, false
}

// HasStep reports whether the given step number contains enabled questions.
func (c *Campaign) HasStep(step int) bool {
	for _, s := range c.Steps() {
		if s == step {
			return true
		}
	}

	return false
}

// QuestionsForStep returns the enabled questions of a step ordered by
// sort order, ties broken by field key for determinism.
func (c *Campaign) QuestionsForStep(step int) []*Question {
	var questions []*Question

	for _, q := range c.Questions {
		if q.Enabled && q.StepNumber == step {
			questions = append(questions, q)
		}
	}

	sort.SliceStable(questions, func(i, j int) bool {
		if questions[i].SortOrder != questions[j].SortOrder {
			return questions[i].SortOrder < questions[j].SortOrder
		}

		return questions[i].FieldKey < questions[j].FieldKey
	})

	return questions
}

// QuestionByKey looks up an enabled or disabled question by its field key.
func (c *Campaign) QuestionByKey(fieldKey string) (*Question, bool) {
	for _, q := range c.Questions {
		if q.FieldKey == fieldKey {
			return q, true
		}
	}

	return nil, false
}

// HasEnabledQuestions reports whether there is anything to collect at all.
func (c *Campaign) HasEnabledQuestions() bool {
	for _, q := range c.Questions {
		if q.Enabled {
			return true
		}
	}

	return false
}

// RulesForStep returns the branching rule groups attached to a step.
func (c *Campaign) RulesForStep(step int) []*RuleGroup {
	if c.StepRules == nil {
		return nil
	}

	return c.StepRules[step]
}

// Snapshot captures the campaign configuration an interaction cache entry
// needs to render and complete the flow without a second schema fetch.
func (c *Campaign) Snapshot() *CampaignSnapshot {
	return &CampaignSnapshot{
		ID:      c.ID,
		Name:    c.Name,
		RoleIDs: c.RoleIDs,
	}
}

// CampaignSnapshot is the subset of campaign config carried inside an
// interaction cache entry.
type CampaignSnapshot struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	RoleIDs []string `json:"role_ids,omitempty"`
}
