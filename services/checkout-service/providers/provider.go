package providers

import (
	"context"

	"github.com/stripe/stripe-go/v80"
)

// CustomerRequest creates the processor-side customer for one checkout attempt.
type CustomerRequest struct {
	Email          string
	OrderID        string
	IdempotencyKey string
}

// PaymentIntentRequest creates an intent for AmountCents in Currency.
type PaymentIntentRequest struct {
	CustomerID     string
	AmountCents    int64
	Currency       string
	Email          string
	OrderID        string
	IdempotencyKey string
}

// PaymentIntent is the processor view of an intent the service cares about.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Currency     string
	Metadata     map[string]string
}

// PaymentProvider defines the payment processor operations the checkout flow uses.
type PaymentProvider interface {
	// CreateCustomer returns the new customer id.
	CreateCustomer(ctx context.Context, req CustomerRequest) (string, error)

	// CreateEphemeralKey returns a short-lived secret scoped to the customer.
	CreateEphemeralKey(ctx context.Context, customerID, idempotencyKey string) (string, error)

	// CreatePaymentIntent creates an intent with automatic payment methods enabled.
	CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error)

	// GetPaymentIntent fetches an intent by id.
	GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)

	// ParseWebhook verifies the signature header and decodes the event.
	ParseWebhook(payload []byte, signature string) (stripe.Event, error)
}
