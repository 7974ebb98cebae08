package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/shopcart/storefront/services/checkout-service/events"
	"github.com/shopcart/storefront/services/checkout-service/models"
)

// ServiceError is a typed error with an HTTP status code.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string { return e.Message }

// Counter records business metrics. *aws_pkg.MetricsClient satisfies it.
type Counter interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
}

func count(ctx context.Context, c Counter, name string) {
	if c == nil {
		return
	}
	_ = c.RecordCount(ctx, name, map[string]string{"Service": "checkout-service"})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// eventSink publishes order events to one topic. A nil publisher or empty
// topic turns publishing into a logged no-op.
type eventSink struct {
	publisher events.Publisher
	topic     string
	logger    *zap.Logger
}

// publishEvent marshals an event and publishes it (non-fatal on error).
func (s eventSink) publishEvent(ctx context.Context, event models.OrderEvent) {
	if s.publisher == nil || s.topic == "" {
		s.logger.Warn("Event bus not configured, skipping event publish", zap.String("event_type", event.Type))
		return
	}
	b, err := events.Encode(event)
	if err != nil {
		s.logger.Error("Failed to marshal order event", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, s.topic, b); err != nil {
		s.logger.Error("Failed to publish order event",
			zap.String("event_type", event.Type),
			zap.String("order_id", event.OrderID),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("Published order event",
		zap.String("event_type", event.Type),
		zap.String("order_id", event.OrderID),
	)
}
