package model

import "time"

// ValueKind discriminates the shape stored in an AnswerValue
type ValueKind string

const (
	KindText     ValueKind = "text"     // select, radio, text and single-choice custom types
	KindList     ValueKind = "list"     // multiselect, ranked_choice
	KindNumber   ValueKind = "number"   // number, slider
	KindRange    ValueKind = "range"    // dual_slider
	KindCoverage ValueKind = "coverage" // multiselect_with_slider
	KindMap      ValueKind = "map"      // matrix, conditional, condensed_checkbox_grid
)

// RangeValue is the {min,max} pair of a dual slider
type RangeValue struct {
	Min float64 `json:"min" bson:"min"`
	Max float64 `json:"max" bson:"max"`
}

// CoverageValue is the answer of a multiselect_with_slider question
type CoverageValue struct {
	DataTypes    []string `json:"dataTypes" bson:"dataTypes"`
	Completeness float64  `json:"completeness" bson:"completeness"`
}

// AnswerValue is the persisted answer shape. Exactly one payload field is
// meaningful, selected by Kind. A KindNumber value with a nil Number means
// "no value chosen".
type AnswerValue struct {
	Kind     ValueKind      `json:"kind" bson:"kind"`
	Text     string         `json:"text,omitempty" bson:"text,omitempty"`
	List     []string       `json:"list,omitempty" bson:"list,omitempty"`
	Number   *float64       `json:"number,omitempty" bson:"number,omitempty"`
	Range    *RangeValue    `json:"range,omitempty" bson:"range,omitempty"`
	Coverage *CoverageValue `json:"coverage,omitempty" bson:"coverage,omitempty"`
	Map      map[string]any `json:"map,omitempty" bson:"map,omitempty"`
}

func TextValue(s string) AnswerValue {
	return AnswerValue{Kind: KindText, Text: s}
}

func ListValue(items []string) AnswerValue {
	if items == nil {
		items = []string{}
	}
	return AnswerValue{Kind: KindList, List: items}
}

func NumberValue(n float64) AnswerValue {
	return AnswerValue{Kind: KindNumber, Number: &n}
}

// NoNumber is the "no value chosen" sentinel for numeric questions
func NoNumber() AnswerValue {
	return AnswerValue{Kind: KindNumber}
}

func RangeOf(min, max float64) AnswerValue {
	return AnswerValue{Kind: KindRange, Range: &RangeValue{Min: min, Max: max}}
}

func CoverageOf(dataTypes []string, completeness float64) AnswerValue {
	if dataTypes == nil {
		dataTypes = []string{}
	}
	return AnswerValue{Kind: KindCoverage, Coverage: &CoverageValue{DataTypes: dataTypes, Completeness: completeness}}
}

func MapValue(m map[string]any) AnswerValue {
	if m == nil {
		m = map[string]any{}
	}
	return AnswerValue{Kind: KindMap, Map: m}
}

// Raw returns the plain value: string, []string, float64 (or nil), or an
// object for compound kinds.
func (v AnswerValue) Raw() any {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindList:
		if v.List == nil {
			return []string{}
		}
		return v.List
	case KindNumber:
		if v.Number == nil {
			return nil
		}
		return *v.Number
	case KindRange:
		if v.Range == nil {
			return RangeValue{}
		}
		return *v.Range
	case KindCoverage:
		if v.Coverage == nil {
			return CoverageValue{DataTypes: []string{}}
		}
		return *v.Coverage
	case KindMap:
		if v.Map == nil {
			return map[string]any{}
		}
		return v.Map
	}
	return nil
}

// AnswerRecord is the stored answer for one (questionnaire, question) pair
type AnswerRecord struct {
	ID              string      `json:"id" bson:"_id,omitempty"`
	QuestionnaireID string      `json:"questionnaireId" bson:"questionnaireId"`
	QuestionID      string      `json:"questionId" bson:"questionId"`
	Value           AnswerValue `json:"value" bson:"value"`
	Skipped         bool        `json:"skipped" bson:"skipped"`
	UpdatedAt       time.Time   `json:"updatedAt" bson:"updatedAt"`
}
