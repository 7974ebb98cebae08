package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"

	"github.com/shopcart/storefront/pkg/storefront"
	"github.com/shopcart/storefront/services/checkout-service/providers"
)

// testSheet stands in for the mobile payment sheet. Completing it confirms
// the intent with Stripe's test Visa card.
type testSheet struct {
	outcome   string
	stripeKey string
	cfg       storefront.SheetConfig
}

func (s *testSheet) Init(_ context.Context, cfg storefront.SheetConfig) error {
	if cfg.PaymentIntent == "" {
		return errors.New("payment intent missing")
	}
	s.cfg = cfg
	return nil
}

func (s *testSheet) Present(ctx context.Context) (storefront.SheetOutcome, error) {
	switch s.outcome {
	case "cancel":
		return storefront.SheetCanceled, nil
	case "complete":
	default:
		return storefront.SheetCanceled, fmt.Errorf("unknown sheet outcome %q", s.outcome)
	}
	if s.stripeKey == "" {
		return storefront.SheetCanceled, errors.New("a Stripe test key is needed to complete payment")
	}

	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String("pm_card_visa"),
		ReturnURL:     stripe.String("https://example.com/return"),
	}
	params.Context = ctx
	pi, err := client.New(s.stripeKey, nil).PaymentIntents.Confirm(providers.PaymentIntentID(s.cfg.PaymentIntent), params)
	if err != nil {
		return storefront.SheetCanceled, err
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return storefront.SheetCanceled, fmt.Errorf("payment intent is %s", pi.Status)
	}
	return storefront.SheetCompleted, nil
}
