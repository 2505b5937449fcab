package model

import "time"

type QuestionnaireStatus string

const (
	StatusInProgress QuestionnaireStatus = "in_progress"
	StatusCompleted  QuestionnaireStatus = "completed"
)

// QuestionnaireRecord is one user's run through the catalog. It is created on
// the first saved answer and moves to completed exactly once.
type QuestionnaireRecord struct {
	ID          string              `json:"id" bson:"_id,omitempty"`
	OwnerID     string              `json:"ownerId" bson:"ownerId"`
	Status      QuestionnaireStatus `json:"status" bson:"status"`
	StartedAt   time.Time           `json:"startedAt" bson:"startedAt"`
	CompletedAt *time.Time          `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}

// IsCompleted reports whether the questionnaire reached its terminal state
func (q *QuestionnaireRecord) IsCompleted() bool {
	return q.Status == StatusCompleted
}

// Summary counts answers of a questionnaire against its catalog
type Summary struct {
	Total             int     `json:"total"`
	Answered          int     `json:"answered"`
	Skipped           int     `json:"skipped"`
	Missing           int     `json:"missing"`
	CompletionPercent float64 `json:"completionPercent"`
}

// Summarize computes answered/skipped/missing counts in catalog order
func Summarize(catalog []QuestionDefinition, answers []AnswerRecord) Summary {
	byQuestion := make(map[string]AnswerRecord, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	s := Summary{Total: len(catalog)}
	for _, q := range catalog {
		a, ok := byQuestion[q.ID]
		switch {
		case !ok:
			s.Missing++
		case a.Skipped:
			s.Skipped++
		default:
			s.Answered++
		}
	}
	if s.Total > 0 {
		s.CompletionPercent = float64(s.Answered+s.Skipped) / float64(s.Total) * 100
	}
	return s
}
