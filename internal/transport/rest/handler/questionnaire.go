package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"preflight/internal/export"
	"preflight/internal/logger"
	"preflight/internal/service"
	"preflight/internal/transport/rest/middleware"
)

// QuestionnaireAPI is the surface of service.QuestionnaireService
type QuestionnaireAPI interface {
	List(ctx context.Context, ownerID string) ([]service.QuestionnaireItem, error)
	Detail(ctx context.Context, ownerID, id string) (*service.QuestionnaireDetail, error)
	Bundle(ctx context.Context, ownerID, id string) (export.Bundle, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// QuestionnaireHandler serves saved questionnaires and their exports
type QuestionnaireHandler struct {
	questionnaires QuestionnaireAPI
	log            *logger.Logger
	now            func() time.Time
}

func NewQuestionnaireHandler(questionnaires QuestionnaireAPI, log *logger.Logger) *QuestionnaireHandler {
	return &QuestionnaireHandler{questionnaires: questionnaires, log: log, now: time.Now}
}

// List handles GET /v1/questionnaires
func (h *QuestionnaireHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.questionnaires.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"questionnaires": items})
}

// Get handles GET /v1/questionnaires/{id}
func (h *QuestionnaireHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.questionnaires.Detail(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Delete handles DELETE /v1/questionnaires/{id}
func (h *QuestionnaireHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.questionnaires.Delete(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportCSV handles GET /v1/questionnaires/{id}/export.csv
func (h *QuestionnaireHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	b, ok := h.bundle(w, r)
	if !ok {
		return
	}
	h.attachment(w, "text/csv; charset=utf-8", export.FileName(b.Questionnaire.ID, "csv", h.now()))
	if err := export.WriteCSV(w, export.ToTable(b)); err != nil {
		h.log.Warn("csv export interrupted", "questionnaireId", b.Questionnaire.ID, "error", err)
	}
}

// ExportJSON handles GET /v1/questionnaires/{id}/export.json
func (h *QuestionnaireHandler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	b, ok := h.bundle(w, r)
	if !ok {
		return
	}
	h.attachment(w, "application/json", export.FileName(b.Questionnaire.ID, "json", h.now()))
	if err := export.WriteJSON(w, export.ToStructured(b)); err != nil {
		h.log.Warn("json export interrupted", "questionnaireId", b.Questionnaire.ID, "error", err)
	}
}

// Share handles GET /v1/questionnaires/{id}/share
func (h *QuestionnaireHandler) Share(w http.ResponseWriter, r *http.Request) {
	b, ok := h.bundle(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"subject": "My PreFlight questionnaire results",
		"body":    export.EmailBody(b),
	})
}

func (h *QuestionnaireHandler) bundle(w http.ResponseWriter, r *http.Request) (export.Bundle, bool) {
	b, err := h.questionnaires.Bundle(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.log, err)
		return export.Bundle{}, false
	}
	return b, true
}

func (h *QuestionnaireHandler) attachment(w http.ResponseWriter, contentType, name string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
}
