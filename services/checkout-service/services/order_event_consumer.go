package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	aws_pkg "github.com/shopcart/storefront/pkg/aws"
	"github.com/shopcart/storefront/services/checkout-service/events"
	"github.com/shopcart/storefront/services/checkout-service/models"
)

// OrderEventConsumer starts shipping when an order_paid event arrives on the
// shipping queue.
type OrderEventConsumer struct {
	shipping ShippingService
	metrics  Counter
	logger   *zap.Logger
}

func NewOrderEventConsumer(shipping ShippingService, metrics Counter, logger *zap.Logger) *OrderEventConsumer {
	return &OrderEventConsumer{shipping: shipping, metrics: metrics, logger: logger}
}

// Handle processes one queue message. Returning nil deletes the message, so
// only transient failures are returned for redelivery.
func (c *OrderEventConsumer) Handle(ctx context.Context, body string) error {
	count(ctx, c.metrics, aws_pkg.MetricSQSMessages)

	evt, err := events.Decode(body)
	if err != nil {
		c.logger.Warn("Dropping undecodable order event", zap.Error(err))
		return nil
	}
	if evt.Type != models.EventOrderPaid {
		return nil
	}

	orderID, err := uuid.Parse(evt.OrderID)
	if err != nil {
		c.logger.Warn("Dropping order event with invalid order id", zap.String("order_id", evt.OrderID))
		return nil
	}

	resp, svcErr := c.shipping.StartShippingForOrder(ctx, orderID)
	if svcErr != nil {
		if svcErr.StatusCode >= 500 {
			return svcErr
		}
		c.logger.Warn("Order event not applied",
			zap.String("order_id", evt.OrderID),
			zap.String("reason", svcErr.Message),
		)
		return nil
	}

	c.logger.Info("Shipping started from order event",
		zap.String("order_id", evt.OrderID),
		zap.String("tracking_code", resp.TrackingCode),
	)
	return nil
}

// Run polls the queue until ctx is cancelled.
func (c *OrderEventConsumer) Run(ctx context.Context, consumer *aws_pkg.SQSConsumer) error {
	c.logger.Info("Order event consumer started")
	return consumer.StartPolling(ctx, c.Handle)
}
