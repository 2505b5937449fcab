package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "preflight"

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	answersSaved          *prometheus.CounterVec
	validationRejected    *prometheus.CounterVec
	questionnairesStarted prometheus.Counter
	questionnairesDone    prometheus.Counter
	questionnairesDeleted *prometheus.CounterVec
	checkoutsCreated      prometheus.Counter
}

// New registers every collector on a fresh registry, including the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests received",
		}, []string{"method", "route", "status"}),
		httpLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		answersSaved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_saved_total",
			Help:      "Answers upserted, by question type and skip flag",
		}, []string{"type", "skipped"}),
		validationRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_rejections_total",
			Help:      "Submissions rejected by answer validation",
		}, []string{"type", "rule"}),
		questionnairesStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questionnaires_started_total",
			Help:      "Questionnaires created on a first saved answer",
		}),
		questionnairesDone: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questionnaires_completed_total",
			Help:      "Questionnaires that reached the completed state",
		}),
		questionnairesDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questionnaires_deleted_total",
			Help:      "Questionnaires deleted, by reason",
		}, []string{"reason"}),
		checkoutsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_sessions_created_total",
			Help:      "Hosted checkout sessions created",
		}),
	}
}

func (m *Metrics) AnswerSaved(questionType string, skipped bool) {
	if m == nil {
		return
	}
	m.answersSaved.WithLabelValues(questionType, strconv.FormatBool(skipped)).Inc()
}

func (m *Metrics) ValidationRejected(questionType, rule string) {
	if m == nil {
		return
	}
	if rule == "" {
		rule = "unknown"
	}
	m.validationRejected.WithLabelValues(questionType, rule).Inc()
}

func (m *Metrics) QuestionnaireStarted() {
	if m == nil {
		return
	}
	m.questionnairesStarted.Inc()
}

func (m *Metrics) QuestionnaireCompleted() {
	if m == nil {
		return
	}
	m.questionnairesDone.Inc()
}

// QuestionnaireDeleted counts deletions; reason is "owner" or "reaper"
func (m *Metrics) QuestionnaireDeleted(reason string) {
	if m == nil {
		return
	}
	m.questionnairesDeleted.WithLabelValues(reason).Inc()
}

func (m *Metrics) CheckoutCreated() {
	if m == nil {
		return
	}
	m.checkoutsCreated.Inc()
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := r.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, fmt.Errorf("metrics: underlying ResponseWriter does not support hijacking")
}

// Middleware records request count and latency labelled by the mux route
// template, keeping path parameters out of the label set.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.httpLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
