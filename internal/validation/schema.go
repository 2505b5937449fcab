package validation

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"preflight/internal/model"
)

// FieldError is a user-correctable validation failure on a single answer
type FieldError struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return e.Message
}

// Schema checks an answer value. Validate returns nil or a *FieldError.
type Schema interface {
	// Kind is the value shape the schema accepts; empty for the
	// accept-anything fallback.
	Kind() model.ValueKind
	Validate(v model.AnswerValue) error
}

func fail(rule, custom, def string) error {
	msg := def
	if custom != "" {
		msg = custom
	}
	return &FieldError{Rule: rule, Message: msg}
}

func wrongKind(want model.ValueKind, got model.AnswerValue) error {
	return &FieldError{Rule: "type", Message: fmt.Sprintf("Expected %s value, got %q", want, got.Kind)}
}

type anySchema struct{}

func (anySchema) Kind() model.ValueKind            { return "" }
func (anySchema) Validate(model.AnswerValue) error { return nil }

type textSchema struct {
	required  bool
	minLength *int
	maxLength *int
	pattern   *regexp.Regexp
	predName  string
	predicate Predicate
	message   string
}

func (s *textSchema) Kind() model.ValueKind { return model.KindText }

func (s *textSchema) Validate(v model.AnswerValue) error {
	if v.Kind != model.KindText {
		return wrongKind(model.KindText, v)
	}
	if v.Text == "" {
		if s.required {
			return fail("required", s.message, "This field is required")
		}
		return nil
	}

	n := utf8.RuneCountInString(v.Text)
	if s.minLength != nil && n < *s.minLength {
		return fail("minLength", s.message, fmt.Sprintf("Must be at least %d characters", *s.minLength))
	}
	if s.maxLength != nil && n > *s.maxLength {
		return fail("maxLength", s.message, fmt.Sprintf("Must be at most %d characters", *s.maxLength))
	}
	if s.pattern != nil && !s.pattern.MatchString(v.Text) {
		return fail("pattern", s.message, "Input does not match the required pattern")
	}
	if s.predicate != nil && !s.predicate(v.Text) {
		return fail("custom", s.message, "Validation failed: "+s.predName)
	}
	return nil
}

type numberSchema struct {
	required bool
	minValue *float64
	maxValue *float64
	message  string
}

func (s *numberSchema) Kind() model.ValueKind { return model.KindNumber }

func (s *numberSchema) Validate(v model.AnswerValue) error {
	if v.Kind != model.KindNumber {
		return wrongKind(model.KindNumber, v)
	}
	if v.Number == nil {
		if s.required {
			return fail("required", s.message, "This field is required")
		}
		return nil
	}
	return s.checkBounds(*v.Number)
}

func (s *numberSchema) checkBounds(n float64) error {
	if s.minValue != nil && n < *s.minValue {
		return fail("minValue", s.message, fmt.Sprintf("Must be at least %g", *s.minValue))
	}
	if s.maxValue != nil && n > *s.maxValue {
		return fail("maxValue", s.message, fmt.Sprintf("Must be at most %g", *s.maxValue))
	}
	return nil
}

type choiceSchema struct {
	required bool
	message  string
}

func (s *choiceSchema) Kind() model.ValueKind { return model.KindText }

func (s *choiceSchema) Validate(v model.AnswerValue) error {
	if v.Kind != model.KindText {
		return wrongKind(model.KindText, v)
	}
	if s.required && v.Text == "" {
		return fail("required", s.message, "Please select an option")
	}
	return nil
}

type listSchema struct {
	required  bool
	minLength *int
	maxLength *int
	message   string
}

func (s *listSchema) Kind() model.ValueKind { return model.KindList }

func (s *listSchema) Validate(v model.AnswerValue) error {
	if v.Kind != model.KindList {
		return wrongKind(model.KindList, v)
	}
	return s.checkItems(v.List)
}

func (s *listSchema) checkItems(items []string) error {
	if len(items) == 0 {
		if s.required {
			return fail("required", s.message, "Please select at least one option")
		}
		return nil
	}
	if s.minLength != nil && len(items) < *s.minLength {
		return fail("minLength", s.message, fmt.Sprintf("Please select at least %d options", *s.minLength))
	}
	if s.maxLength != nil && len(items) > *s.maxLength {
		return fail("maxLength", s.message, fmt.Sprintf("Please select at most %d options", *s.maxLength))
	}
	return nil
}

// coverageSchema applies the multiselect rules to the selected data types
type coverageSchema struct {
	items listSchema
}

func (s *coverageSchema) Kind() model.ValueKind { return model.KindCoverage }

func (s *coverageSchema) Validate(v model.AnswerValue) error {
	if v.Kind != model.KindCoverage {
		return wrongKind(model.KindCoverage, v)
	}
	if v.Coverage == nil {
		return s.items.checkItems(nil)
	}
	return s.items.checkItems(v.Coverage.DataTypes)
}

// rangeSchema bounds each leg independently. min <= max is not enforced.
type rangeSchema struct {
	leg numberSchema
}

func (s *rangeSchema) Kind() model.ValueKind { return model.KindRange }

func (s *rangeSchema) Validate(v model.AnswerValue) error {
	if v.Kind != model.KindRange {
		return wrongKind(model.KindRange, v)
	}
	if v.Range == nil {
		return &FieldError{Rule: "type", Message: "Expected a {min, max} range"}
	}
	if err := s.leg.checkBounds(v.Range.Min); err != nil {
		return err
	}
	return s.leg.checkBounds(v.Range.Max)
}

// mapSchema only checks that the value is a keyed map; its field set depends
// on the question's rows/components.
type mapSchema struct{}

func (mapSchema) Kind() model.ValueKind { return model.KindMap }

func (mapSchema) Validate(v model.AnswerValue) error {
	if v.Kind != model.KindMap {
		return wrongKind(model.KindMap, v)
	}
	return nil
}

type rankedSchema struct{}

func (rankedSchema) Kind() model.ValueKind { return model.KindList }

func (rankedSchema) Validate(v model.AnswerValue) error {
	if v.Kind != model.KindList {
		return wrongKind(model.KindList, v)
	}
	return nil
}
