package rest

import (
	"net/http"

	"github.com/gorilla/mux"

	"preflight/internal/config"
	"preflight/internal/logger"
	"preflight/internal/metrics"
	"preflight/internal/model"
	"preflight/internal/transport/rest/handler"
	"preflight/internal/transport/rest/middleware"
	"preflight/internal/transport/ws"
)

// Authenticator is the account surface plus token validation
type Authenticator interface {
	handler.AuthAPI
	ValidateToken(token string) (*model.UserClaims, error)
}

// Container holds all dependencies for the router
type Container struct {
	Auth           Authenticator
	Catalog        handler.CatalogAPI
	Wizard         handler.WizardAPI
	Questionnaires handler.QuestionnaireAPI
	Payments       handler.PaymentAPI
	Metrics        *metrics.Metrics
	WSHub          *ws.Hub
	CORS           config.CORSConfig
	Log            *logger.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	authHandler := handler.NewAuthHandler(c.Auth, c.Log)
	wizardHandler := handler.NewWizardHandler(c.Catalog, c.Wizard, c.Log)
	questionnaireHandler := handler.NewQuestionnaireHandler(c.Questionnaires, c.Log)
	paymentHandler := handler.NewPaymentHandler(c.Payments, c.Log)

	authMW := middleware.NewAuthMiddleware(c.Auth)

	// CORS first so preflight requests never reach auth
	r.Use(corsMiddleware(c.CORS))
	r.Use(c.Metrics.Middleware)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/metrics", c.Metrics.Handler()).Methods("GET")

	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/webhooks/stripe", paymentHandler.Webhook).Methods("POST")

	// WebSocket (token in query param)
	if c.WSHub != nil {
		wsHandler := ws.NewHandler(c.WSHub, c.Auth, c.CORS.AllowedOrigins, c.Log)
		v1.HandleFunc("/ws", wsHandler.ServeWS).Methods("GET")
	}

	user := v1.NewRoute().Subrouter()
	user.Use(authMW.RequireUser)

	user.HandleFunc("/me", authHandler.Me).Methods("GET", "OPTIONS")
	user.HandleFunc("/questions", wizardHandler.Questions).Methods("GET", "OPTIONS")

	user.HandleFunc("/wizard", wizardHandler.Start).Methods("POST", "OPTIONS")
	user.HandleFunc("/wizard/{sessionId}", wizardHandler.Get).Methods("GET", "OPTIONS")
	user.HandleFunc("/wizard/{sessionId}", wizardHandler.Discard).Methods("DELETE", "OPTIONS")
	user.HandleFunc("/wizard/{sessionId}/draft", wizardHandler.SaveDraft).Methods("PUT", "OPTIONS")
	user.HandleFunc("/wizard/{sessionId}/submit", wizardHandler.Submit).Methods("POST", "OPTIONS")
	user.HandleFunc("/wizard/{sessionId}/back", wizardHandler.Back).Methods("POST", "OPTIONS")

	user.HandleFunc("/questionnaires", questionnaireHandler.List).Methods("GET", "OPTIONS")
	user.HandleFunc("/questionnaires/{id}", questionnaireHandler.Get).Methods("GET", "OPTIONS")
	user.HandleFunc("/questionnaires/{id}", questionnaireHandler.Delete).Methods("DELETE", "OPTIONS")
	user.HandleFunc("/questionnaires/{id}/export.csv", questionnaireHandler.ExportCSV).Methods("GET", "OPTIONS")
	user.HandleFunc("/questionnaires/{id}/export.json", questionnaireHandler.ExportJSON).Methods("GET", "OPTIONS")
	user.HandleFunc("/questionnaires/{id}/share", questionnaireHandler.Share).Methods("GET", "OPTIONS")

	user.HandleFunc("/checkout", paymentHandler.Checkout).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(cfg config.CORSConfig) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", cfg.AllowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", cfg.AllowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", cfg.AllowedHeaders)

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
