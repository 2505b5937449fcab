// Package codec turns a raw form submission into the persisted answer shape
// of a question.
package codec

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"preflight/internal/model"
)

// ErrMalformedInput is returned when a field holds a value of the wrong shape
var ErrMalformedInput = errors.New("malformed input")

// FormInput is a decoded form submission keyed by field name
type FormInput map[string]any

// Shape extracts the question's answer from the form. isEmpty follows the
// per-type emptiness rules used for required/skip handling.
func Shape(q *model.QuestionDefinition, form FormInput) (model.AnswerValue, bool, error) {
	field := q.FieldName()
	raw := form[field]

	switch q.Type {
	case model.QuestionTypeText,
		model.QuestionTypeSelect,
		model.QuestionTypeRadio,
		model.QuestionTypeRangeSliderWithLabels,
		model.QuestionTypeVisualSelector,
		model.QuestionTypeHierarchicalSelect:
		s, err := asString(raw)
		if err != nil {
			return model.AnswerValue{}, false, malformed(field, err)
		}
		return model.TextValue(s), s == "", nil

	case model.QuestionTypeNumber, model.QuestionTypeSlider:
		n, ok, err := asNumber(raw)
		if err != nil {
			return model.AnswerValue{}, false, malformed(field, err)
		}
		if !ok {
			return model.NoNumber(), true, nil
		}
		return model.NumberValue(n), false, nil

	case model.QuestionTypeMultiselect, model.QuestionTypeRankedChoice:
		items, err := asStrings(raw)
		if err != nil {
			return model.AnswerValue{}, false, malformed(field, err)
		}
		return model.ListValue(items), len(items) == 0, nil

	case model.QuestionTypeMultiselectWithSlider:
		obj, err := asObject(raw)
		if err != nil {
			return model.AnswerValue{}, false, malformed(field, err)
		}
		dataTypes, err := asStrings(obj["dataTypes"])
		if err != nil {
			return model.AnswerValue{}, false, malformed(field+".dataTypes", err)
		}
		completeness, _, err := asNumber(obj["completeness"])
		if err != nil {
			return model.AnswerValue{}, false, malformed(field+".completeness", err)
		}
		return model.CoverageOf(dataTypes, completeness), len(dataTypes) == 0 && completeness == 0, nil

	case model.QuestionTypeDualSlider:
		obj, err := asObject(raw)
		if err != nil {
			return model.AnswerValue{}, false, malformed(field, err)
		}
		min, _, err := asNumber(obj["min"])
		if err != nil {
			return model.AnswerValue{}, false, malformed(field+".min", err)
		}
		max, _, err := asNumber(obj["max"])
		if err != nil {
			return model.AnswerValue{}, false, malformed(field+".max", err)
		}
		return model.RangeOf(min, max), min == 0 && max == 0, nil

	case model.QuestionTypeMatrix,
		model.QuestionTypeConditional,
		model.QuestionTypeCondensedCheckboxGrid:
		m, err := collectSubfields(field, form)
		if err != nil {
			return model.AnswerValue{}, false, malformed(field, err)
		}
		return model.MapValue(m), len(m) == 0, nil
	}

	// Unknown tags keep whatever was submitted as text when possible.
	s, err := asString(raw)
	if err != nil {
		return model.AnswerValue{}, false, malformed(field, err)
	}
	return model.TextValue(s), s == "", nil
}

// Empty returns the representation stored for a skipped question
func Empty(q *model.QuestionDefinition) model.AnswerValue {
	switch q.Type {
	case model.QuestionTypeNumber, model.QuestionTypeSlider:
		return model.NoNumber()
	case model.QuestionTypeMultiselect, model.QuestionTypeRankedChoice:
		return model.ListValue(nil)
	case model.QuestionTypeMultiselectWithSlider:
		return model.CoverageOf(nil, 0)
	case model.QuestionTypeDualSlider:
		return model.RangeOf(0, 0)
	case model.QuestionTypeMatrix, model.QuestionTypeConditional, model.QuestionTypeCondensedCheckboxGrid:
		return model.MapValue(nil)
	default:
		return model.TextValue("")
	}
}

// Subfields lists the sub-field keys (without prefix) present in the form
// for a compound question, sorted.
func Subfields(q *model.QuestionDefinition, form FormInput) []string {
	prefix := q.FieldName() + "_"
	var keys []string
	for k := range form {
		if strings.HasPrefix(k, prefix) && len(k) > len(prefix) {
			keys = append(keys, strings.TrimPrefix(k, prefix))
		}
	}
	sort.Strings(keys)
	return keys
}

func malformed(field string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrMalformedInput, field, err)
}

// collectSubfields scans every key prefixed by field+"_". A nested object
// submitted under the field itself is merged in as well.
func collectSubfields(field string, form FormInput) (map[string]any, error) {
	out := make(map[string]any)
	if nested, ok := form[field]; ok && nested != nil {
		obj, err := asObject(nested)
		if err != nil {
			return nil, err
		}
		for k, v := range obj {
			out[k] = v
		}
	}

	prefix := field + "_"
	for k, v := range form {
		if strings.HasPrefix(k, prefix) && len(k) > len(prefix) {
			out[strings.TrimPrefix(k, prefix)] = v
		}
	}
	return out, nil
}

func asString(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	default:
		return "", fmt.Errorf("expected string, got %T", raw)
	}
}

// asNumber reports ok=false for "no value chosen" (missing, null, "").
func asNumber(raw any) (float64, bool, error) {
	switch v := raw.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return v, true, nil
	case float32:
		return float64(v), true, nil
	case int:
		return float64(v), true, nil
	case int64:
		return float64(v), true, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false, nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, fmt.Errorf("expected number, got %q", v)
		}
		return n, true, nil
	default:
		return 0, false, fmt.Errorf("expected number, got %T", raw)
	}
}

func asStrings(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return []string{}, nil
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("item %d: expected string, got %T", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected list of strings, got %T", raw)
	}
}

func asObject(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("expected object, got %T", raw)
	}
}
