package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preflight/internal/codec"
	"preflight/internal/config"
	"preflight/internal/export"
	"preflight/internal/logger"
	"preflight/internal/metrics"
	"preflight/internal/model"
	"preflight/internal/service"
)

type stubAuth struct{}

func (stubAuth) Register(context.Context, string, string) (*model.LoginResponse, error) {
	return &model.LoginResponse{Token: "tok", UserID: "u1"}, nil
}

func (stubAuth) Login(context.Context, string, string) (*model.LoginResponse, error) {
	return nil, service.ErrInvalidCredentials
}

func (stubAuth) Me(_ context.Context, userID string) (*model.User, error) {
	return &model.User{ID: userID, Email: "ada@example.com", Tier: model.TierFree}, nil
}

func (stubAuth) ValidateToken(token string) (*model.UserClaims, error) {
	if token != "good" {
		return nil, errors.New("invalid")
	}
	return &model.UserClaims{UserID: "u1"}, nil
}

type emptyCatalog struct{}

func (emptyCatalog) ListQuestions(context.Context) ([]model.QuestionDefinition, error) {
	return nil, nil
}

type noWizard struct{}

func (noWizard) Start(context.Context, string) (*service.WizardView, error) {
	return &service.WizardView{SessionID: "s-1"}, nil
}
func (noWizard) Get(context.Context, string, string) (*service.WizardView, error) {
	return nil, service.ErrSessionNotFound
}
func (noWizard) SaveDraft(context.Context, string, string, codec.FormInput) (*service.WizardView, error) {
	return nil, service.ErrSessionNotFound
}
func (noWizard) Back(context.Context, string, string) (*service.WizardView, error) {
	return nil, service.ErrSessionNotFound
}
func (noWizard) Submit(context.Context, string, string, codec.FormInput, bool) (*service.SubmitResult, error) {
	return nil, service.ErrSessionNotFound
}
func (noWizard) Discard(context.Context, string, string) error { return service.ErrSessionNotFound }

type noQuestionnaires struct{}

func (noQuestionnaires) List(context.Context, string) ([]service.QuestionnaireItem, error) {
	return []service.QuestionnaireItem{}, nil
}
func (noQuestionnaires) Detail(context.Context, string, string) (*service.QuestionnaireDetail, error) {
	return nil, model.ErrNotFound
}
func (noQuestionnaires) Bundle(context.Context, string, string) (export.Bundle, error) {
	return export.Bundle{}, model.ErrNotFound
}
func (noQuestionnaires) Delete(context.Context, string, string) error { return model.ErrNotFound }

type noPayments struct{}

func (noPayments) Checkout(context.Context, string) (string, error) {
	return "", service.ErrPaymentsDisabled
}
func (noPayments) HandleWebhook(context.Context, []byte, string) error {
	return service.ErrPaymentsDisabled
}

func newTestRouter() (http.Handler, *metrics.Metrics) {
	m := metrics.New()
	return NewRouter(&Container{
		Auth:           stubAuth{},
		Catalog:        emptyCatalog{},
		Wizard:         noWizard{},
		Questionnaires: noQuestionnaires{},
		Payments:       noPayments{},
		Metrics:        m,
		CORS: config.CORSConfig{
			AllowedOrigins: "https://app.example.com",
			AllowedMethods: "GET, POST",
			AllowedHeaders: "Content-Type, Authorization",
		},
		Log: logger.Nop(),
	}), m
}

func serve(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_Health(t *testing.T) {
	r, _ := newTestRouter()
	w := serve(r, "GET", "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_Preflight(t *testing.T) {
	r, _ := newTestRouter()
	w := serve(r, "OPTIONS", "/v1/questionnaires", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "GET, POST", w.Header().Get("Access-Control-Allow-Methods"))
}

func TestRouter_RequiresToken(t *testing.T) {
	r, _ := newTestRouter()

	assert.Equal(t, http.StatusUnauthorized, serve(r, "GET", "/v1/me", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "GET", "/v1/me", "forged", "").Code)

	w := serve(r, "GET", "/v1/me", "good", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tier":"free"`)
	assert.NotContains(t, w.Body.String(), "passwordHash")
}

func TestRouter_Routes(t *testing.T) {
	r, _ := newTestRouter()

	assert.Equal(t, http.StatusCreated, serve(r, "POST", "/v1/auth/register", "", `{"email":"a@b.co","password":"longenough"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "POST", "/v1/auth/login", "", `{"email":"a@b.co","password":"nope"}`).Code)
	assert.Equal(t, http.StatusCreated, serve(r, "POST", "/v1/wizard", "good", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, "GET", "/v1/wizard/s-404", "good", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, "GET", "/v1/questionnaires", "good", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, "GET", "/v1/questionnaires/qn-1/export.csv", "good", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(r, "POST", "/v1/checkout", "good", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(r, "POST", "/v1/webhooks/stripe", "", `{}`).Code)
}

func TestRouter_MetricsByRouteTemplate(t *testing.T) {
	r, _ := newTestRouter()
	serve(r, "GET", "/v1/wizard/s-1", "good", "")
	serve(r, "GET", "/v1/wizard/s-2", "good", "")

	w := serve(r, "GET", "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `route="/v1/wizard/{sessionId}"`)
	assert.NotContains(t, w.Body.String(), "/v1/wizard/s-1")
}
