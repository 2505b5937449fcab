package service

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"preflight/internal/config"
)

// StripeCheckout is the Stripe-hosted PaymentProvider
type StripeCheckout struct {
	api *client.API
	cfg config.StripeConfig
}

func NewStripeCheckout(cfg config.StripeConfig) *StripeCheckout {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &StripeCheckout{api: api, cfg: cfg}
}

func (s *StripeCheckout) CreateCheckoutSession(ctx context.Context, ownerID, email string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(s.cfg.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(s.cfg.ProductName),
					},
					UnitAmount: stripe.Int64(s.cfg.PriceCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(s.cfg.PublicURL + "/success"),
		CancelURL:         stripe.String(s.cfg.PublicURL + "/cancel"),
		ClientReferenceID: stripe.String(ownerID),
	}
	if email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	params.Context = ctx
	params.AddMetadata("userId", ownerID)

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

func (s *StripeCheckout) ParseWebhook(payload []byte, signature string) (*PaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, err
	}
	return checkoutEvent(event)
}

func checkoutEvent(event stripe.Event) (*PaymentEvent, error) {
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
	default:
		return &PaymentEvent{Type: string(event.Type)}, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, err
	}
	owner := sess.ClientReferenceID
	if owner == "" {
		owner = sess.Metadata["userId"]
	}
	return &PaymentEvent{
		Type:    string(event.Type),
		OwnerID: owner,
		Paid:    sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}, nil
}
