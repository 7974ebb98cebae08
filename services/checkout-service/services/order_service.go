package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"

	aws_pkg "github.com/shopcart/storefront/pkg/aws"
	"github.com/shopcart/storefront/pkg/pricing"
	"github.com/shopcart/storefront/services/checkout-service/events"
	"github.com/shopcart/storefront/services/checkout-service/models"
	"github.com/shopcart/storefront/services/checkout-service/providers"
	"github.com/shopcart/storefront/services/checkout-service/repository"
	"github.com/shopcart/storefront/services/common/logger"
)

const (
	MsgOrderNotFound      = "Order not found"
	MsgPaymentIncomplete  = "Payment has not been completed"
	MsgPaymentUnverified  = "Failed to verify payment"
	MsgInvalidWebhook     = "invalid webhook"
	msgPaymentIntentEmpty = "payment_intent is required"
)

// OrderService defines the order book and payment confirmation logic.
type OrderService interface {
	CreateOrder(ctx context.Context, email string, req *models.CreateOrderRequest) (*models.Order, *ServiceError)
	ListOrders(ctx context.Context, email string, page, limit int) (*models.OrderListResponse, *ServiceError)
	GetOrder(ctx context.Context, email string, id uuid.UUID) (*models.Order, *ServiceError)
	DeleteOrder(ctx context.Context, email string, id uuid.UUID) *ServiceError
	ConfirmPayment(ctx context.Context, email string, id uuid.UUID, paymentIntent string) (*models.ConfirmPaymentResult, *ServiceError)
	HandleWebhook(ctx context.Context, payload []byte, signature string) *ServiceError
}

type orderServiceImpl struct {
	repo     repository.OrderRepository
	provider providers.PaymentProvider
	events   eventSink
	metrics  Counter
	now      func() time.Time
	logger   *zap.Logger
}

// NewOrderService creates a new OrderService. Events go to topic through
// publisher; either may be empty to disable publishing.
func NewOrderService(
	repo repository.OrderRepository,
	provider providers.PaymentProvider,
	publisher events.Publisher,
	topic string,
	metrics Counter,
	logger *zap.Logger,
) OrderService {
	return &orderServiceImpl{
		repo:     repo,
		provider: provider,
		events:   eventSink{publisher: publisher, topic: topic, logger: logger},
		metrics:  metrics,
		now:      time.Now,
		logger:   logger,
	}
}

// CreateOrder persists a pending order after checking the address, the items
// and that the total equals subtotal plus shipping.
func (s *orderServiceImpl) CreateOrder(ctx context.Context, email string, req *models.CreateOrderRequest) (*models.Order, *ServiceError) {
	if missing := req.ShippingAddress.MissingFields(); len(missing) > 0 {
		return nil, &ServiceError{
			StatusCode: http.StatusBadRequest,
			Message:    "Shipping address is incomplete: missing " + strings.Join(missing, ", "),
		}
	}
	if len(req.Items) == 0 {
		return nil, &ServiceError{StatusCode: http.StatusBadRequest, Message: "Order must contain at least one item"}
	}

	var subtotal float64
	for _, item := range req.Items {
		if item.Quantity < 1 || !pricing.ValidAmount(item.Price) {
			return nil, &ServiceError{StatusCode: http.StatusBadRequest, Message: fmt.Sprintf("Invalid item %d", item.ProductID)}
		}
		subtotal += item.Price * float64(item.Quantity)
	}

	quote := pricing.QuoteFor(subtotal)
	if !pricing.ValidAmount(req.TotalPrice) || !pricing.SameAmount(req.TotalPrice, quote.Total) {
		return nil, &ServiceError{
			StatusCode: http.StatusBadRequest,
			Message:    fmt.Sprintf("Total price %.2f does not match items and shipping (%.2f)", req.TotalPrice, quote.Total),
		}
	}

	order := &models.Order{
		UserEmail:       normalizeEmail(email),
		TotalPrice:      req.TotalPrice,
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		PaymentStatus:   models.PaymentStatusPending,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		logger.FromContext(ctx, s.logger).Error("Failed to persist order", zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to create order"}
	}

	logger.FromContext(ctx, s.logger).Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.Float64("total", order.TotalPrice),
		zap.Int("items", len(order.Items)),
	)
	count(ctx, s.metrics, aws_pkg.MetricOrdersCreated)
	s.events.publishEvent(ctx, s.orderEvent(models.EventOrderCreated, order, ""))
	return order, nil
}

func (s *orderServiceImpl) ListOrders(ctx context.Context, email string, page, limit int) (*models.OrderListResponse, *ServiceError) {
	orders, total, err := s.repo.FindByUserEmail(ctx, normalizeEmail(email), page, limit)
	if err != nil {
		s.logger.Error("Failed to list orders", zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to fetch orders"}
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return &models.OrderListResponse{Orders: orders, Total: total, Page: page, Limit: limit}, nil
}

// GetOrder returns the order when it belongs to email. Other users' orders
// are reported as not found.
func (s *orderServiceImpl) GetOrder(ctx context.Context, email string, id uuid.UUID) (*models.Order, *ServiceError) {
	order, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: MsgOrderNotFound}
	}
	if err != nil {
		s.logger.Error("Failed to load order", zap.String("order_id", id.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to fetch order"}
	}
	if order.UserEmail != normalizeEmail(email) {
		return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: MsgOrderNotFound}
	}
	return order, nil
}

func (s *orderServiceImpl) DeleteOrder(ctx context.Context, email string, id uuid.UUID) *ServiceError {
	if _, svcErr := s.GetOrder(ctx, email, id); svcErr != nil {
		return svcErr
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return &ServiceError{StatusCode: http.StatusNotFound, Message: MsgOrderNotFound}
		}
		s.logger.Error("Failed to delete order", zap.String("order_id", id.String()), zap.Error(err))
		return &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to delete order"}
	}
	s.logger.Info("Order deleted", zap.String("order_id", id.String()))
	return nil
}

// ConfirmPayment marks the order paid once the processor reports that the
// intent for exactly this order succeeded. Confirming twice is a no-op.
func (s *orderServiceImpl) ConfirmPayment(ctx context.Context, email string, id uuid.UUID, paymentIntent string) (*models.ConfirmPaymentResult, *ServiceError) {
	log := logger.FromContext(ctx, s.logger).With(zap.String("order_id", id.String()))

	order, svcErr := s.GetOrder(ctx, email, id)
	if svcErr != nil {
		return nil, svcErr
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		return &models.ConfirmPaymentResult{Order: order, AlreadyPaid: true}, nil
	}

	intentID := providers.PaymentIntentID(strings.TrimSpace(paymentIntent))
	if intentID == "" {
		return nil, &ServiceError{StatusCode: http.StatusBadRequest, Message: msgPaymentIntentEmpty}
	}

	intent, err := s.provider.GetPaymentIntent(ctx, intentID)
	if err != nil {
		log.Error("Failed to retrieve payment intent", zap.String("payment_intent_id", intentID), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusBadGateway, Message: MsgPaymentUnverified}
	}
	if intent.Status != string(stripe.PaymentIntentStatusSucceeded) || !paysFor(intent, order) {
		log.Warn("Payment intent does not confirm this order",
			zap.String("payment_intent_id", intent.ID),
			zap.String("status", intent.Status),
			zap.String("intent_order_id", intent.Metadata["order_id"]),
			zap.Int64("intent_amount", intent.Amount),
			zap.String("intent_currency", intent.Currency),
		)
		return nil, &ServiceError{StatusCode: http.StatusConflict, Message: MsgPaymentIncomplete}
	}

	return s.markPaid(ctx, order, intent.ID, "confirm")
}

// HandleWebhook verifies a Stripe event and applies payment_intent.succeeded
// through the same conditional transition as ConfirmPayment. Other event
// types are acknowledged and ignored.
func (s *orderServiceImpl) HandleWebhook(ctx context.Context, payload []byte, signature string) *ServiceError {
	event, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		s.logger.Warn("Stripe webhook signature verification failed", zap.Error(err))
		return &ServiceError{StatusCode: http.StatusBadRequest, Message: MsgInvalidWebhook}
	}

	s.logger.Info("Processing Stripe webhook",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
	)
	if event.Type != stripe.EventTypePaymentIntentSucceeded {
		s.logger.Info("Unhandled webhook event type", zap.String("event_type", string(event.Type)))
		return nil
	}

	var pi stripe.PaymentIntent
	if event.Data == nil || json.Unmarshal(event.Data.Raw, &pi) != nil {
		s.logger.Error("Failed to unmarshal payment intent", zap.String("event_id", event.ID))
		return &ServiceError{StatusCode: http.StatusBadRequest, Message: MsgInvalidWebhook}
	}

	id, err := uuid.Parse(pi.Metadata["order_id"])
	if err != nil {
		s.logger.Warn("Payment intent without a valid order_id metadata",
			zap.String("payment_intent_id", pi.ID),
			zap.Any("metadata", pi.Metadata),
		)
		return nil
	}

	order, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrOrderNotFound) {
		s.logger.Warn("Webhook references unknown order", zap.String("order_id", id.String()))
		return nil
	}
	if err != nil {
		s.logger.Error("Failed to load order for webhook", zap.String("order_id", id.String()), zap.Error(err))
		return &ServiceError{StatusCode: http.StatusInternalServerError, Message: MsgInternalError}
	}

	intent := &providers.PaymentIntent{ID: pi.ID, Amount: pi.Amount, Currency: string(pi.Currency), Metadata: pi.Metadata}
	if !paysFor(intent, order) {
		s.logger.Warn("Webhook payment does not cover the order",
			zap.String("order_id", id.String()),
			zap.String("payment_intent_id", pi.ID),
			zap.Int64("intent_amount", pi.Amount),
			zap.String("intent_currency", string(pi.Currency)),
		)
		return nil
	}

	_, svcErr := s.markPaid(ctx, order, pi.ID, "webhook")
	return svcErr
}

// paysFor reports whether the intent was opened for this order and charges
// exactly its total.
func paysFor(intent *providers.PaymentIntent, order *models.Order) bool {
	return intent.Metadata["order_id"] == order.ID.String() &&
		intent.Amount == pricing.ToMinorUnits(order.TotalPrice) &&
		strings.EqualFold(intent.Currency, pricing.Currency)
}

func (s *orderServiceImpl) markPaid(ctx context.Context, order *models.Order, intentID, source string) (*models.ConfirmPaymentResult, *ServiceError) {
	paidAt := s.now().UTC()
	applied, err := s.repo.MarkPaid(ctx, order.ID, intentID, paidAt)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: MsgOrderNotFound}
	}
	if err != nil {
		s.logger.Error("Failed to mark order paid", zap.String("order_id", order.ID.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to update order"}
	}

	if !applied {
		// Another confirmation won the race; report the stored state.
		if latest, err := s.repo.FindByID(ctx, order.ID); err == nil {
			order = latest
		}
		return &models.ConfirmPaymentResult{Order: order, AlreadyPaid: true}, nil
	}

	order.PaymentStatus = models.PaymentStatusPaid
	order.PaymentIntentID = intentID
	order.PaidAt = &paidAt

	s.logger.Info("Order paid",
		zap.String("order_id", order.ID.String()),
		zap.String("payment_intent_id", intentID),
		zap.String("source", source),
	)
	count(ctx, s.metrics, aws_pkg.MetricOrdersPaid)
	s.events.publishEvent(ctx, s.orderEvent(models.EventOrderPaid, order, source))
	return &models.ConfirmPaymentResult{Order: order}, nil
}

func (s *orderServiceImpl) orderEvent(eventType string, order *models.Order, source string) models.OrderEvent {
	return models.OrderEvent{
		Type:      eventType,
		OrderID:   order.ID.String(),
		UserEmail: order.UserEmail,
		Amount:    pricing.ToMinorUnits(order.TotalPrice),
		Currency:  pricing.Currency,
		Source:    source,
		Timestamp: s.now().UTC(),
	}
}
