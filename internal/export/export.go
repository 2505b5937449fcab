// Package export flattens a questionnaire and its catalog into tabular and
// structured forms. Formatting is pure; writers only encode what they are
// given.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"preflight/internal/model"
)

const (
	SkippedText  = "[Skipped]"
	NoAnswerText = "[No answer]"
)

// Header is the column order of a table export
var Header = []string{"Question", "Answer", "Question Type", "Skipped"}

// Bundle is everything an export needs about one questionnaire
type Bundle struct {
	Questionnaire model.QuestionnaireRecord
	Catalog       []model.QuestionDefinition
	Answers       []model.AnswerRecord
}

// Row is one catalog question with its formatted answer
type Row struct {
	Question     string
	Answer       string
	QuestionType model.QuestionType
	Skipped      bool
}

// Values returns the row in Header order
func (r Row) Values() []string {
	skipped := "No"
	if r.Skipped {
		skipped = "Yes"
	}
	return []string{r.Question, r.Answer, string(r.QuestionType), skipped}
}

// StructuredAnswer pairs a catalog question with its stored answer, if any
type StructuredAnswer struct {
	Question model.QuestionDefinition `json:"question"`
	Answer   *model.AnswerRecord      `json:"answer,omitempty"`
}

// Document is the lossless export of a questionnaire
type Document struct {
	ID          string                    `json:"id"`
	OwnerID     string                    `json:"ownerId"`
	Status      model.QuestionnaireStatus `json:"status"`
	StartedAt   time.Time                 `json:"startedAt"`
	CompletedAt *time.Time                `json:"completedAt,omitempty"`
	Summary     model.Summary             `json:"summary"`
	Items       []StructuredAnswer        `json:"items"`
}

// ToTable returns one row per catalog question in catalog order
func ToTable(b Bundle) []Row {
	byQuestion := indexAnswers(b.Answers)
	rows := make([]Row, 0, len(b.Catalog))
	for _, q := range b.Catalog {
		a, ok := byQuestion[q.ID]
		row := Row{Question: q.Prompt, QuestionType: q.Type}
		switch {
		case !ok:
			row.Answer = NoAnswerText
		case a.Skipped:
			row.Answer = SkippedText
			row.Skipped = true
		default:
			row.Answer = FormatValue(a.Value)
		}
		rows = append(rows, row)
	}
	return rows
}

// ToStructured keeps every answer value as stored
func ToStructured(b Bundle) Document {
	byQuestion := indexAnswers(b.Answers)
	items := make([]StructuredAnswer, 0, len(b.Catalog))
	for _, q := range b.Catalog {
		item := StructuredAnswer{Question: q}
		if a, ok := byQuestion[q.ID]; ok {
			item.Answer = &a
		}
		items = append(items, item)
	}
	return Document{
		ID:          b.Questionnaire.ID,
		OwnerID:     b.Questionnaire.OwnerID,
		Status:      b.Questionnaire.Status,
		StartedAt:   b.Questionnaire.StartedAt,
		CompletedAt: b.Questionnaire.CompletedAt,
		Summary:     model.Summarize(b.Catalog, b.Answers),
		Items:       items,
	}
}

// FormatValue renders an answer for a table cell: text verbatim, lists
// comma-joined, objects as JSON, numbers string-coerced.
func FormatValue(v model.AnswerValue) string {
	switch raw := v.Raw().(type) {
	case nil:
		return ""
	case string:
		return raw
	case []string:
		return strings.Join(raw, ", ")
	case float64:
		return strconv.FormatFloat(raw, 'f', -1, 64)
	default:
		data, err := json.Marshal(raw)
		if err != nil {
			return fmt.Sprint(raw)
		}
		return string(data)
	}
}

// WriteCSV writes the header and rows with RFC 4180 quoting
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.Values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the document indented by two spaces
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// FileName is questionnaire_<id>_<YYYY-MM-DD>.<ext> in UTC
func FileName(questionnaireID, ext string, now time.Time) string {
	return fmt.Sprintf("questionnaire_%s_%s.%s", questionnaireID, now.UTC().Format("2006-01-02"), ext)
}

// EmailBody is the plain-text share summary of a questionnaire
func EmailBody(b Bundle) string {
	var sb strings.Builder
	sb.WriteString("Here are the results of my questionnaire:\n\n")
	if b.Questionnaire.CompletedAt != nil {
		fmt.Fprintf(&sb, "Completed on: %s\n\n", b.Questionnaire.CompletedAt.UTC().Format("2006-01-02"))
	}

	byQuestion := indexAnswers(b.Answers)
	for i, q := range b.Catalog {
		answer := NoAnswerText
		if a, ok := byQuestion[q.ID]; ok {
			if a.Skipped {
				answer = SkippedText
			} else if s := FormatValue(a.Value); s != "" {
				answer = s
			}
		}
		fmt.Fprintf(&sb, "Q%d: %s\nA: %s\n\n", i+1, q.Prompt, answer)
	}
	sb.WriteString("Powered by PreFlight\n")
	return sb.String()
}

func indexAnswers(answers []model.AnswerRecord) map[string]model.AnswerRecord {
	out := make(map[string]model.AnswerRecord, len(answers))
	for _, a := range answers {
		out[a.QuestionID] = a
	}
	return out
}
