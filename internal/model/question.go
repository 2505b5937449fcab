package model

import (
	"fmt"
)

// QuestionType defines the kind of input a question collects
type QuestionType string

const (
	QuestionTypeText                  QuestionType = "text"
	QuestionTypeSelect                QuestionType = "select"
	QuestionTypeMultiselect           QuestionType = "multiselect"
	QuestionTypeRadio                 QuestionType = "radio"
	QuestionTypeSlider                QuestionType = "slider"
	QuestionTypeNumber                QuestionType = "number"
	QuestionTypeMultiselectWithSlider QuestionType = "multiselect_with_slider" // {dataTypes, completeness}
	QuestionTypeDualSlider            QuestionType = "dual_slider"             // {min, max}
	QuestionTypeMatrix                QuestionType = "matrix"
	QuestionTypeRankedChoice          QuestionType = "ranked_choice"
	QuestionTypeConditional           QuestionType = "conditional"
	QuestionTypeRangeSliderWithLabels QuestionType = "range_slider_with_labels"
	QuestionTypeVisualSelector        QuestionType = "visual_selector"
	QuestionTypeCondensedCheckboxGrid QuestionType = "condensed_checkbox_grid"
	QuestionTypeHierarchicalSelect    QuestionType = "hierarchical_select"
)

var allQuestionTypes = []QuestionType{
	QuestionTypeText,
	QuestionTypeSelect,
	QuestionTypeMultiselect,
	QuestionTypeRadio,
	QuestionTypeSlider,
	QuestionTypeNumber,
	QuestionTypeMultiselectWithSlider,
	QuestionTypeDualSlider,
	QuestionTypeMatrix,
	QuestionTypeRankedChoice,
	QuestionTypeConditional,
	QuestionTypeRangeSliderWithLabels,
	QuestionTypeVisualSelector,
	QuestionTypeCondensedCheckboxGrid,
	QuestionTypeHierarchicalSelect,
}

// AllQuestionTypes returns every known type tag in declaration order
func AllQuestionTypes() []QuestionType {
	out := make([]QuestionType, len(allQuestionTypes))
	copy(out, allQuestionTypes)
	return out
}

// Valid reports whether t is one of the known type tags
func (t QuestionType) Valid() bool {
	for _, known := range allQuestionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// SliderRange configures numeric and slider inputs
type SliderRange struct {
	Min  float64 `json:"min" bson:"min" yaml:"min"`
	Max  float64 `json:"max" bson:"max" yaml:"max"`
	Step float64 `json:"step" bson:"step" yaml:"step"`
}

// HierarchyNode is one entry of a hierarchical_select tree
type HierarchyNode struct {
	Label    string          `json:"label" bson:"label" yaml:"label"`
	Value    string          `json:"value" bson:"value" yaml:"value"`
	Children []HierarchyNode `json:"children,omitempty" bson:"children,omitempty" yaml:"children,omitempty"`
}

// ComponentCondition makes a conditional sub-field visible only when the
// trigger component holds one of the ShowWhen values.
type ComponentCondition struct {
	DependsOn string   `json:"dependsOn" bson:"dependsOn" yaml:"dependsOn"`
	ShowWhen  []string `json:"showWhen" bson:"showWhen" yaml:"showWhen"`
}

// Component is a sub-field of a conditional question
type Component struct {
	ID        string              `json:"id" bson:"id" yaml:"id"`
	Label     string              `json:"label" bson:"label" yaml:"label"`
	Type      QuestionType        `json:"type" bson:"type" yaml:"type"`
	Options   []string            `json:"options,omitempty" bson:"options,omitempty" yaml:"options,omitempty"`
	Condition *ComponentCondition `json:"condition,omitempty" bson:"condition,omitempty" yaml:"condition,omitempty"`
}

// ConstraintRecord holds the optional validation rules of a question.
// Nil bounds mean "no bound".
type ConstraintRecord struct {
	Required         bool     `json:"required" bson:"required" yaml:"required"`
	MinLength        *int     `json:"minLength,omitempty" bson:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength        *int     `json:"maxLength,omitempty" bson:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	MinValue         *float64 `json:"minValue,omitempty" bson:"minValue,omitempty" yaml:"minValue,omitempty"`
	MaxValue         *float64 `json:"maxValue,omitempty" bson:"maxValue,omitempty" yaml:"maxValue,omitempty"`
	Pattern          string   `json:"pattern,omitempty" bson:"pattern,omitempty" yaml:"pattern,omitempty"`
	CustomValidation string   `json:"customValidation,omitempty" bson:"customValidation,omitempty" yaml:"customValidation,omitempty"`
	ErrorMessage     string   `json:"errorMessage,omitempty" bson:"errorMessage,omitempty" yaml:"errorMessage,omitempty"`
}

// Check reports a definition-time error when a lower bound exceeds its upper bound
func (c *ConstraintRecord) Check() error {
	if c == nil {
		return nil
	}
	if c.MinLength != nil && c.MaxLength != nil && *c.MinLength > *c.MaxLength {
		return fmt.Errorf("minLength %d exceeds maxLength %d", *c.MinLength, *c.MaxLength)
	}
	if c.MinValue != nil && c.MaxValue != nil && *c.MinValue > *c.MaxValue {
		return fmt.Errorf("minValue %g exceeds maxValue %g", *c.MinValue, *c.MaxValue)
	}
	return nil
}

// IsRequired is nil-safe
func (c *ConstraintRecord) IsRequired() bool {
	return c != nil && c.Required
}

// QuestionDefinition is one entry of the catalog. Seeded externally and never
// mutated by the wizard.
type QuestionDefinition struct {
	ID          string            `json:"id" bson:"_id" yaml:"id"`
	Index       int               `json:"index" bson:"index" yaml:"index"`
	Type        QuestionType      `json:"type" bson:"type" yaml:"type"`
	Title       string            `json:"title,omitempty" bson:"title,omitempty" yaml:"title,omitempty"`
	Prompt      string            `json:"prompt" bson:"prompt" yaml:"prompt"`
	Options     []string          `json:"options,omitempty" bson:"options,omitempty" yaml:"options,omitempty"`
	SliderRange *SliderRange      `json:"sliderRange,omitempty" bson:"sliderRange,omitempty" yaml:"sliderRange,omitempty"`
	Labels      []string          `json:"labels,omitempty" bson:"labels,omitempty" yaml:"labels,omitempty"`
	Rows        []string          `json:"rows,omitempty" bson:"rows,omitempty" yaml:"rows,omitempty"`
	Columns     []string          `json:"columns,omitempty" bson:"columns,omitempty" yaml:"columns,omitempty"`
	Hierarchy   []HierarchyNode   `json:"hierarchy,omitempty" bson:"hierarchy,omitempty" yaml:"hierarchy,omitempty"`
	Components  []Component       `json:"components,omitempty" bson:"components,omitempty" yaml:"components,omitempty"`
	Validation  *ConstraintRecord `json:"validation,omitempty" bson:"validation,omitempty" yaml:"validation,omitempty"`
}

// FieldName is the form key the question's input is submitted under.
// Compound questions submit sub-fields as FieldName()+"_"+subKey.
func (q *QuestionDefinition) FieldName() string {
	return "q_" + q.ID
}

// Required is true when the question may not be skipped
func (q *QuestionDefinition) Required() bool {
	return q.Validation.IsRequired()
}

// VisibleComponents returns the conditional sub-fields shown for the given
// trigger value. The trigger is the first component without a condition.
func (q *QuestionDefinition) VisibleComponents(triggerValue string) []Component {
	var trigger *Component
	for i := range q.Components {
		if q.Components[i].Condition == nil {
			trigger = &q.Components[i]
			break
		}
	}
	if trigger == nil {
		return nil
	}

	var visible []Component
	for _, c := range q.Components {
		if c.Condition == nil {
			visible = append(visible, c)
			continue
		}
		if c.Condition.DependsOn != trigger.ID {
			continue
		}
		for _, v := range c.Condition.ShowWhen {
			if v == triggerValue {
				visible = append(visible, c)
				break
			}
		}
	}
	return visible
}
