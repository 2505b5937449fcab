package service

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToOwner(ownerID string, msgType string, payload interface{})
}

// Event types pushed to the owner's websocket connections
const (
	EventQuestionnaireUpdated = "questionnaire_updated"
	EventAccountUpdated       = "account_updated"
)

// QuestionnaireEvent is the payload of questionnaire_updated
type QuestionnaireEvent struct {
	QuestionnaireID string `json:"questionnaireId"`
	QuestionID      string `json:"questionId,omitempty"`
	Status          string `json:"status"`
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastToOwner(string, string, interface{}) {}
