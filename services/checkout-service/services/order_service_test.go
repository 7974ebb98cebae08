package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"

	aws_pkg "github.com/shopcart/storefront/pkg/aws"
	"github.com/shopcart/storefront/pkg/pricing"
	"github.com/shopcart/storefront/services/checkout-service/events"
	"github.com/shopcart/storefront/services/checkout-service/models"
	"github.com/shopcart/storefront/services/checkout-service/providers"
	"github.com/shopcart/storefront/services/checkout-service/services"
)

const topic = "arn:aws:sns:us-east-1:000000000000:order-events"

func newOrderSvc(repo *mockOrderRepo, p *mockProvider, pub *mockPublisher, metrics *mockCounter) services.OrderService {
	logger, _ := zap.NewDevelopment()
	return services.NewOrderService(repo, p, pub, topic, metrics, logger)
}

func TestCreateOrder_Success(t *testing.T) {
	repo := newMockOrderRepo()
	pub := &mockPublisher{}
	metrics := &mockCounter{}
	svc := newOrderSvc(repo, &mockProvider{}, pub, metrics)

	order, svcErr := svc.CreateOrder(context.Background(), "Ana@Example.com", &models.CreateOrderRequest{
		TotalPrice:      600,
		Items:           []models.OrderItem{{ProductID: 1, Quantity: 2, Price: 300, Title: "Coat"}},
		ShippingAddress: completeAddress(),
	})

	require.Nil(t, svcErr)
	assert.NotEqual(t, uuid.Nil, order.ID)
	assert.Equal(t, "ana@example.com", order.UserEmail)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, 1, metrics.get(aws_pkg.MetricOrdersCreated))
	require.Equal(t, 1, pub.count())

	evt, err := events.Decode(string(pub.messages[0]))
	require.NoError(t, err)
	assert.Equal(t, models.EventOrderCreated, evt.Type)
	assert.Equal(t, int64(60000), evt.Amount)
}

func TestCreateOrder_ShippingFeeIncluded(t *testing.T) {
	repo := newMockOrderRepo()
	svc := newOrderSvc(repo, &mockProvider{}, &mockPublisher{}, nil)

	order, svcErr := svc.CreateOrder(context.Background(), "a@b.co", &models.CreateOrderRequest{
		TotalPrice:      55.99,
		Items:           []models.OrderItem{{ProductID: 1, Quantity: 1, Price: 50, Title: "Mug"}},
		ShippingAddress: completeAddress(),
	})
	require.Nil(t, svcErr)
	assert.Equal(t, 55.99, order.TotalPrice)
}

func TestCreateOrder_Rejections(t *testing.T) {
	partial := completeAddress()
	partial.Phone, partial.Country = "", " "

	cases := []struct {
		name    string
		req     models.CreateOrderRequest
		message string
	}{
		{
			"incomplete address",
			models.CreateOrderRequest{TotalPrice: 55.99, Items: []models.OrderItem{{ProductID: 1, Quantity: 1, Price: 50, Title: "Mug"}}, ShippingAddress: partial},
			"Shipping address is incomplete: missing phone, country",
		},
		{
			"no items",
			models.CreateOrderRequest{TotalPrice: 5.99, ShippingAddress: completeAddress()},
			"Order must contain at least one item",
		},
		{
			"total without shipping",
			models.CreateOrderRequest{TotalPrice: 50, Items: []models.OrderItem{{ProductID: 1, Quantity: 1, Price: 50, Title: "Mug"}}, ShippingAddress: completeAddress()},
			"Total price 50.00 does not match items and shipping (55.99)",
		},
		{
			"zero quantity",
			models.CreateOrderRequest{TotalPrice: 5.99, Items: []models.OrderItem{{ProductID: 9, Quantity: 0, Price: 50, Title: "Mug"}}, ShippingAddress: completeAddress()},
			"Invalid item 9",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMockOrderRepo()
			svc := newOrderSvc(repo, &mockProvider{}, &mockPublisher{}, nil)

			order, svcErr := svc.CreateOrder(context.Background(), "a@b.co", &tc.req)

			assert.Nil(t, order)
			require.NotNil(t, svcErr)
			assert.Equal(t, 400, svcErr.StatusCode)
			assert.Equal(t, tc.message, svcErr.Message)
			assert.Empty(t, repo.orders)
		})
	}
}

func TestCreateOrder_PersistFailure(t *testing.T) {
	repo := newMockOrderRepo()
	repo.createErr = errors.New("connection refused")
	svc := newOrderSvc(repo, &mockProvider{}, &mockPublisher{}, nil)

	_, svcErr := svc.CreateOrder(context.Background(), "a@b.co", &models.CreateOrderRequest{
		TotalPrice:      55.99,
		Items:           []models.OrderItem{{ProductID: 1, Quantity: 1, Price: 50, Title: "Mug"}},
		ShippingAddress: completeAddress(),
	})
	require.NotNil(t, svcErr)
	assert.Equal(t, 500, svcErr.StatusCode)
}

func TestGetOrder_OwnershipAndNotFound(t *testing.T) {
	order := pendingOrder("ana@example.com", 10)
	svc := newOrderSvc(newMockOrderRepo(order), &mockProvider{}, &mockPublisher{}, nil)

	got, svcErr := svc.GetOrder(context.Background(), "ANA@example.com", order.ID)
	require.Nil(t, svcErr)
	assert.Equal(t, order.ID, got.ID)

	_, svcErr = svc.GetOrder(context.Background(), "bo@example.com", order.ID)
	require.NotNil(t, svcErr)
	assert.Equal(t, 404, svcErr.StatusCode)

	_, svcErr = svc.GetOrder(context.Background(), "ana@example.com", uuid.New())
	require.NotNil(t, svcErr)
	assert.Equal(t, 404, svcErr.StatusCode)
}

func TestListAndDeleteOrders(t *testing.T) {
	a, b := pendingOrder("ana@example.com", 10), pendingOrder("ana@example.com", 20)
	other := pendingOrder("bo@example.com", 30)
	repo := newMockOrderRepo(a, b, other)
	svc := newOrderSvc(repo, &mockProvider{}, &mockPublisher{}, nil)

	list, svcErr := svc.ListOrders(context.Background(), "ana@example.com", 1, 10)
	require.Nil(t, svcErr)
	assert.Equal(t, int64(2), list.Total)
	assert.Len(t, list.Orders, 2)

	assert.Equal(t, 404, svc.DeleteOrder(context.Background(), "ana@example.com", other.ID).StatusCode)
	assert.Nil(t, svc.DeleteOrder(context.Background(), "ana@example.com", a.ID))
	assert.NotContains(t, repo.orders, a.ID)
}

func TestListOrders_EmptyIsNotNil(t *testing.T) {
	svc := newOrderSvc(newMockOrderRepo(), &mockProvider{}, &mockPublisher{}, nil)
	list, svcErr := svc.ListOrders(context.Background(), "ana@example.com", 1, 10)
	require.Nil(t, svcErr)
	assert.NotNil(t, list.Orders)
}

func succeededIntent(order *models.Order) *providers.PaymentIntent {
	return &providers.PaymentIntent{
		ID:           "pi_777",
		ClientSecret: "pi_777_secret_xyz",
		Status:       "succeeded",
		Amount:       pricing.ToMinorUnits(order.TotalPrice),
		Currency:     "usd",
		Metadata:     map[string]string{"order_id": order.ID.String()},
	}
}

func TestConfirmPayment_MarksPaidOnce(t *testing.T) {
	order := pendingOrder("ana@example.com", 600)
	repo := newMockOrderRepo(order)
	pub := &mockPublisher{}
	metrics := &mockCounter{}
	svc := newOrderSvc(repo, &mockProvider{intent: succeededIntent(order)}, pub, metrics)

	res, svcErr := svc.ConfirmPayment(context.Background(), "ana@example.com", order.ID, "pi_777_secret_xyz")
	require.Nil(t, svcErr)
	assert.False(t, res.AlreadyPaid)
	assert.Equal(t, models.PaymentStatusPaid, res.Order.PaymentStatus)
	assert.Equal(t, "pi_777", res.Order.PaymentIntentID)
	assert.NotNil(t, res.Order.PaidAt)
	assert.Equal(t, 1, metrics.get(aws_pkg.MetricOrdersPaid))
	require.Equal(t, 1, pub.count())

	evt, err := events.Decode(string(pub.messages[0]))
	require.NoError(t, err)
	assert.Equal(t, models.EventOrderPaid, evt.Type)
	assert.Equal(t, order.ID.String(), evt.OrderID)

	res, svcErr = svc.ConfirmPayment(context.Background(), "ana@example.com", order.ID, "pi_777_secret_xyz")
	require.Nil(t, svcErr)
	assert.True(t, res.AlreadyPaid)
	assert.Equal(t, 1, pub.count())
	assert.Equal(t, 1, repo.markCalls)
}

func TestConfirmPayment_RequiresSucceededIntentForThisOrder(t *testing.T) {
	order := pendingOrder("ana@example.com", 600)

	notSucceeded := succeededIntent(order)
	notSucceeded.Status = "requires_payment_method"

	otherOrder := succeededIntent(order)
	otherOrder.Metadata = map[string]string{"order_id": uuid.NewString()}

	underpaid := succeededIntent(order)
	underpaid.Amount = 50

	otherCurrency := succeededIntent(order)
	otherCurrency.Currency = "eur"

	for name, intent := range map[string]*providers.PaymentIntent{
		"not succeeded":  notSucceeded,
		"other order id": otherOrder,
		"underpaid":      underpaid,
		"other currency": otherCurrency,
	} {
		t.Run(name, func(t *testing.T) {
			repo := newMockOrderRepo(order)
			pub := &mockPublisher{}
			svc := newOrderSvc(repo, &mockProvider{intent: intent}, pub, nil)

			_, svcErr := svc.ConfirmPayment(context.Background(), "ana@example.com", order.ID, intent.ClientSecret)
			require.NotNil(t, svcErr)
			assert.Equal(t, 409, svcErr.StatusCode)
			assert.Equal(t, "Payment has not been completed", svcErr.Message)
			assert.Zero(t, repo.markCalls)
			assert.Zero(t, pub.count())

			stored, _ := repo.FindByID(context.Background(), order.ID)
			assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
		})
	}
}

func TestConfirmPayment_ProviderErrorAndOwnership(t *testing.T) {
	order := pendingOrder("ana@example.com", 600)
	repo := newMockOrderRepo(order)
	svc := newOrderSvc(repo, &mockProvider{getErr: errors.New("timeout")}, &mockPublisher{}, nil)

	_, svcErr := svc.ConfirmPayment(context.Background(), "ana@example.com", order.ID, "pi_1_secret_x")
	require.NotNil(t, svcErr)
	assert.Equal(t, 502, svcErr.StatusCode)

	_, svcErr = svc.ConfirmPayment(context.Background(), "mallory@example.com", order.ID, "pi_1_secret_x")
	require.NotNil(t, svcErr)
	assert.Equal(t, 404, svcErr.StatusCode)
	assert.Zero(t, repo.markCalls)
}

func webhookEvent(t *testing.T, eventType stripe.EventType, amount int64, metadata map[string]string) stripe.Event {
	raw, err := json.Marshal(map[string]interface{}{
		"id":       "pi_wh",
		"object":   "payment_intent",
		"status":   "succeeded",
		"amount":   amount,
		"currency": "usd",
		"metadata": metadata,
	})
	require.NoError(t, err)
	return stripe.Event{ID: "evt_1", Type: eventType, Data: &stripe.EventData{Raw: raw}}
}

func TestHandleWebhook_PaymentIntentSucceeded(t *testing.T) {
	order := pendingOrder("ana@example.com", 42)
	repo := newMockOrderRepo(order)
	pub := &mockPublisher{}
	p := &mockProvider{event: webhookEvent(t, stripe.EventTypePaymentIntentSucceeded, 4200, map[string]string{
		"order_id": order.ID.String(), "email": "ana@example.com",
	})}
	svc := newOrderSvc(repo, p, pub, nil)

	require.Nil(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
	stored, _ := repo.FindByID(context.Background(), order.ID)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, "pi_wh", stored.PaymentIntentID)
	assert.Equal(t, 1, pub.count())

	// Stripe redelivers; the second delivery changes nothing.
	require.Nil(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
	assert.Equal(t, 1, pub.count())
}

func TestHandleWebhook_IgnoredEvents(t *testing.T) {
	order := pendingOrder("ana@example.com", 42)

	cases := map[string]stripe.Event{
		"other type":     webhookEvent(t, stripe.EventTypePaymentIntentPaymentFailed, 4200, map[string]string{"order_id": order.ID.String()}),
		"no order id":    webhookEvent(t, stripe.EventTypePaymentIntentSucceeded, 4200, map[string]string{}),
		"unknown order":  webhookEvent(t, stripe.EventTypePaymentIntentSucceeded, 4200, map[string]string{"order_id": uuid.NewString()}),
		"underpaid":      webhookEvent(t, stripe.EventTypePaymentIntentSucceeded, 50, map[string]string{"order_id": order.ID.String()}),
		"garbage order":  webhookEvent(t, stripe.EventTypePaymentIntentSucceeded, 4200, map[string]string{"order_id": "42"}),
	}
	for name, evt := range cases {
		t.Run(name, func(t *testing.T) {
			repo := newMockOrderRepo(order)
			svc := newOrderSvc(repo, &mockProvider{event: evt}, &mockPublisher{}, nil)

			assert.Nil(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
			assert.Zero(t, repo.markCalls)
		})
	}
}

func TestHandleWebhook_BadSignature(t *testing.T) {
	svc := newOrderSvc(newMockOrderRepo(), &mockProvider{webhookErr: fmt.Errorf("bad signature")}, &mockPublisher{}, nil)
	svcErr := svc.HandleWebhook(context.Background(), []byte("{}"), "nope")
	require.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.StatusCode)
}
