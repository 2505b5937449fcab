package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.AnswerSaved("text", false)
	m.AnswerSaved("text", false)
	m.AnswerSaved("multiselect", true)
	m.ValidationRejected("text", "")
	m.QuestionnaireStarted()
	m.QuestionnaireCompleted()
	m.QuestionnaireDeleted("reaper")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.answersSaved.WithLabelValues("text", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.answersSaved.WithLabelValues("multiselect", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.validationRejected.WithLabelValues("text", "unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.questionnairesStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.questionnairesDeleted.WithLabelValues("reaper")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AnswerSaved("text", true)
		m.QuestionnaireCompleted()
		m.CheckoutCreated()
	})
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	m := New()
	r := mux.NewRouter()
	r.Use(m.Middleware)
	r.HandleFunc("/v1/questionnaires/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/questionnaires/"+id, nil))
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/v1/questionnaires/{id}", "404")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "preflight_http_requests_total"))
}
