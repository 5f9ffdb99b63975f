package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/virion-labs/onboardflow/pkg/models"
)

// ValidateResponses checks each submitted value against its question's
// type and option constraints. Values for unknown field keys are rejected
// rather than silently dropped. It returns the coerced response set on
// success or a ResponsesValidationError listing every rejected field.
func ValidateResponses(validate *validator.Validate, campaign *models.Campaign, values models.ResponseSet) (models.ResponseSet, error) {
	coerced := make(models.ResponseSet, len(values))

	var failures []*FieldValidationError

	for fieldKey, value := range values {
		question, ok := campaign.QuestionByKey(fieldKey)
		if !ok {
			failures = append(failures, &FieldValidationError{
				FieldKey: fieldKey,
				Reason:   "field does not exist in this campaign",
			})

			continue
		}

		result, err := coerceFieldValue(validate, question, value)
		if err != nil {
			failures = append(failures, &FieldValidationError{
				FieldKey: fieldKey,
				Reason:   err.Error(),
			})

			continue
		}

		coerced[fieldKey] = result
	}

	if len(failures) > 0 {
		return nil, &ResponsesValidationError{Fields: failures}
	}

	return coerced, nil
}

// coerceFieldValue converts a loosely-typed submitted value into the
// canonical representation for the question's field type.
func coerceFieldValue(validate *validator.Validate, question *models.Question, value any) (any, error) {
	if value == nil {
		if question.Required {
			return nil, fmt.Errorf("value is required")
		}

		return nil, nil
	}

	switch question.FieldType {
	case models.FieldTypeText:
		return stringValue(value)
	case models.FieldTypeEmail:
		text, err := stringValue(value)
		if err != nil {
			return nil, err
		}

		if err := validate.Var(text, "required,email"); err != nil {
			return nil, fmt.Errorf("%q is not a valid email address", text)
		}

		return text, nil
	case models.FieldTypeURL:
		text, err := stringValue(value)
		if err != nil {
			return nil, err
		}

		if err := validate.Var(text, "required,url"); err != nil {
			return nil, fmt.Errorf("%q is not a valid URL", text)
		}

		return text, nil
	case models.FieldTypeNumber:
		return numberValue(value)
	case models.FieldTypeBoolean:
		return booleanValue(value)
	case models.FieldTypeSelect:
		text, err := stringValue(value)
		if err != nil {
			return nil, err
		}

		if !question.HasOption(text) {
			return nil, fmt.Errorf("%q is not one of the allowed options", text)
		}

		return text, nil
	case models.FieldTypeMultiSelect:
		return multiSelectValue(question, value)
	}

	return nil, fmt.Errorf("unsupported field type %q", question.FieldType)
}

func stringValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("expected a text value")
	}
}

func numberValue(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a valid number", v)
		}

		return parsed, nil
	default:
		return 0, fmt.Errorf("expected a numeric value")
	}
}

func booleanValue(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(strings.ToLower(v)))
		if err != nil {
			return false, fmt.Errorf("%q is not a valid boolean", v)
		}

		return parsed, nil
	default:
		return false, fmt.Errorf("expected a boolean value")
	}
}

func multiSelectValue(question *models.Question, value any) ([]string, error) {
	var items []any

	switch v := value.(type) {
	case []any:
		items = v
	case []string:
		items = make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
	case string:
		// Single selection submitted without array wrapping.
		items = []any{v}
	default:
		return nil, fmt.Errorf("expected a list of options")
	}

	selected := make([]string, 0, len(items))

	for _, item := range items {
		text, err := stringValue(item)
		if err != nil {
			return nil, err
		}

		if !question.HasOption(text) {
			return nil, fmt.Errorf("%q is not one of the allowed options", text)
		}

		selected = append(selected, text)
	}

	return selected, nil
}
