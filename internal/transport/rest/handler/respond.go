package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"preflight/internal/logger"
	"preflight/internal/model"
	"preflight/internal/repository"
	"preflight/internal/service"
	"preflight/internal/wizard"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// validationBody carries the failing rule so clients can render it inline
type validationBody struct {
	Error      string `json:"error"`
	QuestionID string `json:"questionId"`
	Rule       string `json:"rule"`
}

// writeServiceError maps domain errors to status codes. Unknown errors are
// logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, log *logger.Logger, err error) {
	var verr *wizard.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, validationBody{
			Error:      verr.Message,
			QuestionID: verr.QuestionID,
			Rule:       verr.Rule,
		})
	case errors.Is(err, wizard.ErrSaveFailed):
		log.Error("answer persistence failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save answer")
	case errors.Is(err, model.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrInvalidWebhook):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, wizard.ErrCompleted),
		errors.Is(err, wizard.ErrAtStart),
		errors.Is(err, wizard.ErrBadState),
		errors.Is(err, wizard.ErrEmptyCatalog),
		errors.Is(err, service.ErrAlreadyPaid),
		errors.Is(err, service.ErrSessionBusy),
		errors.Is(err, repository.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrPaymentsDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
