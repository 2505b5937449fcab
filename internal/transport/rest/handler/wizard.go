package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"preflight/internal/codec"
	"preflight/internal/logger"
	"preflight/internal/model"
	"preflight/internal/service"
	"preflight/internal/transport/rest/middleware"
)

// CatalogAPI lists the active question catalog
type CatalogAPI interface {
	ListQuestions(ctx context.Context) ([]model.QuestionDefinition, error)
}

// WizardAPI is the surface of service.WizardService
type WizardAPI interface {
	Start(ctx context.Context, ownerID string) (*service.WizardView, error)
	Get(ctx context.Context, ownerID, sessionID string) (*service.WizardView, error)
	SaveDraft(ctx context.Context, ownerID, sessionID string, form codec.FormInput) (*service.WizardView, error)
	Back(ctx context.Context, ownerID, sessionID string) (*service.WizardView, error)
	Submit(ctx context.Context, ownerID, sessionID string, form codec.FormInput, confirmSkip bool) (*service.SubmitResult, error)
	Discard(ctx context.Context, ownerID, sessionID string) error
}

// WizardHandler drives the one-question-at-a-time flow
type WizardHandler struct {
	catalog CatalogAPI
	wizard  WizardAPI
	log     *logger.Logger
}

func NewWizardHandler(catalog CatalogAPI, wizard WizardAPI, log *logger.Logger) *WizardHandler {
	return &WizardHandler{catalog: catalog, wizard: wizard, log: log}
}

// SubmitRequest is the body of POST /v1/wizard/{sessionId}/submit. A nil
// form resubmits the saved draft.
type SubmitRequest struct {
	Form        codec.FormInput `json:"form"`
	ConfirmSkip bool            `json:"confirmSkip"`
}

// DraftRequest is the body of PUT /v1/wizard/{sessionId}/draft
type DraftRequest struct {
	Form codec.FormInput `json:"form"`
}

// Questions handles GET /v1/questions
func (h *WizardHandler) Questions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.catalog.ListQuestions(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"questions": questions})
}

// Start handles POST /v1/wizard
func (h *WizardHandler) Start(w http.ResponseWriter, r *http.Request) {
	v, err := h.wizard.Start(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// Get handles GET /v1/wizard/{sessionId}
func (h *WizardHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.wizard.Get(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["sessionId"])
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// SaveDraft handles PUT /v1/wizard/{sessionId}/draft
func (h *WizardHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Form == nil {
		req.Form = codec.FormInput{}
	}
	v, err := h.wizard.SaveDraft(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["sessionId"], req.Form)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Submit handles POST /v1/wizard/{sessionId}/submit
func (h *WizardHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.wizard.Submit(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["sessionId"], req.Form, req.ConfirmSkip)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Back handles POST /v1/wizard/{sessionId}/back
func (h *WizardHandler) Back(w http.ResponseWriter, r *http.Request) {
	v, err := h.wizard.Back(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["sessionId"])
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Discard handles DELETE /v1/wizard/{sessionId}
func (h *WizardHandler) Discard(w http.ResponseWriter, r *http.Request) {
	if err := h.wizard.Discard(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["sessionId"]); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
