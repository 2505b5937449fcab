// Package validation builds per-question answer schemas from a type tag and
// an optional constraint record.
package validation

import (
	"regexp"

	"preflight/internal/model"
)

// Build returns the schema for a question type. It never fails: unknown type
// tags get an accept-anything schema, an uncompilable pattern is dropped and
// an unknown predicate name is ignored.
func Build(t model.QuestionType, c *model.ConstraintRecord) Schema {
	if c == nil {
		c = &model.ConstraintRecord{}
	}

	switch t {
	case model.QuestionTypeText:
		return buildText(c)
	case model.QuestionTypeNumber, model.QuestionTypeSlider:
		return buildNumber(c)
	case model.QuestionTypeSelect,
		model.QuestionTypeRadio,
		model.QuestionTypeRangeSliderWithLabels,
		model.QuestionTypeVisualSelector,
		model.QuestionTypeHierarchicalSelect:
		return &choiceSchema{required: c.Required, message: c.ErrorMessage}
	case model.QuestionTypeMultiselect:
		return buildList(c)
	case model.QuestionTypeMultiselectWithSlider:
		return &coverageSchema{items: *buildList(c)}
	case model.QuestionTypeDualSlider:
		return &rangeSchema{leg: *buildNumber(c)}
	case model.QuestionTypeMatrix,
		model.QuestionTypeCondensedCheckboxGrid,
		model.QuestionTypeConditional:
		return mapSchema{}
	case model.QuestionTypeRankedChoice:
		return rankedSchema{}
	default:
		return anySchema{}
	}
}

// For is Build applied to a catalog entry
func For(q *model.QuestionDefinition) Schema {
	return Build(q.Type, q.Validation)
}

func buildText(c *model.ConstraintRecord) *textSchema {
	s := &textSchema{
		required:  c.Required,
		minLength: c.MinLength,
		maxLength: c.MaxLength,
		message:   c.ErrorMessage,
	}
	if c.Pattern != "" {
		if re, err := regexp.Compile(c.Pattern); err == nil {
			s.pattern = re
		}
	}
	if c.CustomValidation != "" {
		if p := LookupPredicate(c.CustomValidation); p != nil {
			s.predName = c.CustomValidation
			s.predicate = p
		}
	}
	return s
}

func buildNumber(c *model.ConstraintRecord) *numberSchema {
	return &numberSchema{
		required: c.Required,
		minValue: c.MinValue,
		maxValue: c.MaxValue,
		message:  c.ErrorMessage,
	}
}

func buildList(c *model.ConstraintRecord) *listSchema {
	return &listSchema{
		required:  c.Required,
		minLength: c.MinLength,
		maxLength: c.MaxLength,
		message:   c.ErrorMessage,
	}
}
