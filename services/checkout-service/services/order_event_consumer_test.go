package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shopcart/storefront/services/checkout-service/events"
	"github.com/shopcart/storefront/services/checkout-service/models"
	"github.com/shopcart/storefront/services/checkout-service/services"
)

func paidEventBody(t *testing.T, orderID string, enveloped bool) string {
	b, err := events.Encode(models.OrderEvent{
		Type: models.EventOrderPaid, OrderID: orderID, Amount: 100, Currency: "usd", Timestamp: time.Now(),
	})
	require.NoError(t, err)
	if !enveloped {
		return string(b)
	}
	env, err := json.Marshal(map[string]string{"Type": "Notification", "Message": string(b)})
	require.NoError(t, err)
	return string(env)
}

func TestOrderEventConsumer_StartsShipping(t *testing.T) {
	for _, enveloped := range []bool{false, true} {
		order := paidOrder("ana@example.com")
		repo := newMockOrderRepo(order)
		logger, _ := zap.NewDevelopment()
		consumer := services.NewOrderEventConsumer(services.NewShippingService(repo, nil, logger), nil, logger)

		require.NoError(t, consumer.Handle(context.Background(), paidEventBody(t, order.ID.String(), enveloped)))
		assert.Regexp(t, trackingCodePattern, repo.orders[order.ID].TrackingCode)
	}
}

func TestOrderEventConsumer_DropsPermanentFailures(t *testing.T) {
	unpaid := pendingOrder("ana@example.com", 10)
	repo := newMockOrderRepo(unpaid)
	logger, _ := zap.NewDevelopment()
	consumer := services.NewOrderEventConsumer(services.NewShippingService(repo, nil, logger), nil, logger)

	assert.NoError(t, consumer.Handle(context.Background(), "not json"))
	assert.NoError(t, consumer.Handle(context.Background(), `{"type":"order_created","order_id":"x"}`))
	assert.NoError(t, consumer.Handle(context.Background(), paidEventBody(t, "not-a-uuid", false)))
	assert.NoError(t, consumer.Handle(context.Background(), paidEventBody(t, uuid.NewString(), false)))
	assert.NoError(t, consumer.Handle(context.Background(), paidEventBody(t, unpaid.ID.String(), false)))
	assert.Empty(t, repo.orders[unpaid.ID].TrackingCode)
}

func TestOrderEventConsumer_RetriesTransientFailures(t *testing.T) {
	order := paidOrder("ana@example.com")
	repo := newMockOrderRepo(order)
	repo.findErr = errors.New("db down")
	logger, _ := zap.NewDevelopment()
	consumer := services.NewOrderEventConsumer(services.NewShippingService(repo, nil, logger), nil, logger)

	assert.Error(t, consumer.Handle(context.Background(), paidEventBody(t, order.ID.String(), false)))
}
