package model

import "time"

// WizardState is the transient state of one wizard run. It is owned by a
// single controller; between HTTP requests it is parked in Redis.
type WizardState struct {
	SessionID       string                    `json:"sessionId"`
	OwnerID         string                    `json:"ownerId"`
	CurrentIndex    int                       `json:"currentIndex"`
	QuestionnaireID string                    `json:"questionnaireId,omitempty"`
	Pending         map[string]map[string]any `json:"pending"` // question id -> buffered form input
	Completed       bool                      `json:"completed"`
	UpdatedAt       time.Time                 `json:"updatedAt"`
}

// Progress describes the wizard position for display
type Progress struct {
	Position int     `json:"position"` // 1-based
	Total    int     `json:"total"`
	Percent  float64 `json:"percent"`
	IsLast   bool    `json:"isLast"`
}

// ProgressOf returns "Question i of N" data for a zero-based index
func ProgressOf(index, total int) Progress {
	if total == 0 {
		return Progress{}
	}
	return Progress{
		Position: index + 1,
		Total:    total,
		Percent:  float64(index+1) / float64(total) * 100,
		IsLast:   index == total-1,
	}
}
