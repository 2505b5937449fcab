package service

import (
	"context"
	"errors"

	"preflight/internal/logger"
	"preflight/internal/metrics"
	"preflight/internal/model"
	"preflight/internal/repository"
)

var (
	ErrAlreadyPaid      = errors.New("account already upgraded")
	ErrPaymentsDisabled = errors.New("payments are not configured")
	ErrInvalidWebhook   = errors.New("invalid webhook payload or signature")
)

// PaymentEvent is a verified confirmation from the payment provider
type PaymentEvent struct {
	Type    string
	OwnerID string
	Paid    bool
}

// PaymentProvider creates hosted checkout sessions and verifies webhooks
type PaymentProvider interface {
	// CreateCheckoutSession returns the redirect URL, empty when the provider
	// returned none.
	CreateCheckoutSession(ctx context.Context, ownerID, email string) (string, error)
	ParseWebhook(payload []byte, signature string) (*PaymentEvent, error)
}

// PaymentService upgrades accounts to the paid tier
type PaymentService struct {
	users       repository.UserRepo
	provider    PaymentProvider
	broadcaster Broadcaster
	metrics     *metrics.Metrics
	log         *logger.Logger
}

// NewPaymentService accepts a nil provider, in which case checkout is disabled
func NewPaymentService(users repository.UserRepo, provider PaymentProvider, m *metrics.Metrics, log *logger.Logger) *PaymentService {
	return &PaymentService{
		users:       users,
		provider:    provider,
		broadcaster: noopBroadcaster{},
		metrics:     m,
		log:         log,
	}
}

func (s *PaymentService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Checkout returns the hosted checkout URL for a free-tier user
func (s *PaymentService) Checkout(ctx context.Context, ownerID string) (string, error) {
	if s.provider == nil {
		return "", ErrPaymentsDisabled
	}
	user, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", model.ErrNotFound
	}
	if user.Tier == model.TierPaid {
		return "", ErrAlreadyPaid
	}

	url, err := s.provider.CreateCheckoutSession(ctx, ownerID, user.Email)
	if err != nil {
		return "", err
	}
	s.metrics.CheckoutCreated()
	return url, nil
}

// HandleWebhook flips the owner's tier on a paid checkout confirmation.
// Other event types are acknowledged and ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.provider == nil {
		return ErrPaymentsDisabled
	}
	event, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		s.log.Warn("rejected payment webhook", "error", err)
		return ErrInvalidWebhook
	}
	if event == nil || !event.Paid || event.OwnerID == "" {
		return nil
	}

	if err := s.users.SetTier(ctx, event.OwnerID, model.TierPaid); err != nil {
		return err
	}
	s.log.Info("account upgraded", "userId", event.OwnerID, "event", event.Type)
	s.broadcaster.BroadcastToOwner(event.OwnerID, EventAccountUpdated, map[string]string{"tier": string(model.TierPaid)})
	return nil
}
