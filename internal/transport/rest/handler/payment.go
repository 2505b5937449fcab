package handler

import (
	"context"
	"io"
	"net/http"

	"preflight/internal/logger"
	"preflight/internal/transport/rest/middleware"
)

// Stripe webhooks are well under this
const maxWebhookBytes = 64 << 10

// PaymentAPI is the surface of service.PaymentService
type PaymentAPI interface {
	Checkout(ctx context.Context, ownerID string) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type PaymentHandler struct {
	payments PaymentAPI
	log      *logger.Logger
}

func NewPaymentHandler(payments PaymentAPI, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, log: log}
}

// Checkout handles POST /v1/checkout
func (h *PaymentHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	url, err := h.payments.Checkout(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if url == "" {
		writeError(w, http.StatusBadGateway, "payment provider returned no checkout url")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Webhook handles POST /v1/webhooks/stripe
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}
	if err := h.payments.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
