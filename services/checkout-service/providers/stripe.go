package providers

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
	"github.com/stripe/stripe-go/v80/webhook"
)

// ErrWebhookNotConfigured is returned by ParseWebhook when no signing secret is set.
var ErrWebhookNotConfigured = errors.New("stripe webhook secret not configured")

// StripeProvider implements PaymentProvider against the Stripe API.
type StripeProvider struct {
	api        *client.API
	webhookKey string
}

// NewStripeProvider creates a client bound to secretKey. A nil backends value
// uses the default Stripe endpoints; tests pass backends pointing at a stub server.
func NewStripeProvider(secretKey, webhookKey string, backends *stripe.Backends) *StripeProvider {
	return &StripeProvider{
		api:        client.New(secretKey, backends),
		webhookKey: webhookKey,
	}
}

func (s *StripeProvider) CreateCustomer(ctx context.Context, req CustomerRequest) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(req.Email),
	}
	params.Context = ctx
	if req.OrderID != "" {
		params.AddMetadata("order_id", req.OrderID)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey + ":customer")
	}

	cus, err := s.api.Customers.New(params)
	if err != nil {
		return "", err
	}
	return cus.ID, nil
}

func (s *StripeProvider) CreateEphemeralKey(ctx context.Context, customerID, idempotencyKey string) (string, error) {
	params := &stripe.EphemeralKeyParams{
		Customer:      stripe.String(customerID),
		StripeVersion: stripe.String(stripe.APIVersion),
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey + ":ephemeral_key")
	}

	key, err := s.api.EphemeralKeys.New(params)
	if err != nil {
		return "", err
	}
	return key.Secret, nil
}

func (s *StripeProvider) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(req.AmountCents),
		Currency:     stripe.String(req.Currency),
		Customer:     stripe.String(req.CustomerID),
		ReceiptEmail: stripe.String(req.Email),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("email", req.Email)
	if req.OrderID != "" {
		params.AddMetadata("order_id", req.OrderID)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey + ":payment_intent")
	}

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, err
	}
	return toPaymentIntent(pi), nil
}

func (s *StripeProvider) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, err
	}
	return toPaymentIntent(pi), nil
}

func (s *StripeProvider) ParseWebhook(payload []byte, signature string) (stripe.Event, error) {
	if s.webhookKey == "" {
		return stripe.Event{}, ErrWebhookNotConfigured
	}
	return webhook.ConstructEventWithOptions(payload, signature, s.webhookKey, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

func toPaymentIntent(pi *stripe.PaymentIntent) *PaymentIntent {
	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
}

// PaymentIntentID extracts the intent id from a client secret of the form
// "pi_123_secret_abc". A bare id is returned unchanged.
func PaymentIntentID(clientSecretOrID string) string {
	if i := strings.Index(clientSecretOrID, "_secret_"); i > 0 {
		return clientSecretOrID[:i]
	}
	return clientSecretOrID
}
