package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	aws_pkg "github.com/shopcart/storefront/pkg/aws"
	"github.com/shopcart/storefront/pkg/pricing"
	"github.com/shopcart/storefront/services/checkout-service/models"
	"github.com/shopcart/storefront/services/checkout-service/providers"
	"github.com/shopcart/storefront/services/checkout-service/repository"
	"github.com/shopcart/storefront/services/common/logger"
)

// Broker response messages. Clients match on these, keep them stable.
const (
	MsgSessionCreated    = "Payment session created successfully"
	MsgEmailRequired     = "Email is required"
	MsgInvalidPrice      = "Invalid price"
	MsgInvalidBody       = "Invalid request body"
	MsgInvalidOrderID    = "Invalid order_id"
	MsgSessionInProgress = "Payment session already in progress"
	MsgInternalError     = "Internal Server Error"
)

// CheckoutService brokers payment-session creation with the payment processor.
type CheckoutService interface {
	CreatePaymentSession(ctx context.Context, req *models.CheckoutRequest) (*models.CheckoutResponse, *ServiceError)
}

type checkoutServiceImpl struct {
	provider       providers.PaymentProvider
	sessions       repository.SessionStore
	publishableKey string
	metrics        Counter
	logger         *zap.Logger
}

// NewCheckoutService creates a CheckoutService. sessions may be nil, in which
// case idempotency keys are only forwarded to the processor.
func NewCheckoutService(
	provider providers.PaymentProvider,
	sessions repository.SessionStore,
	publishableKey string,
	metrics Counter,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutServiceImpl{
		provider:       provider,
		sessions:       sessions,
		publishableKey: publishableKey,
		metrics:        metrics,
		logger:         logger,
	}
}

// ParseCheckoutRequest validates a raw checkout body. Nothing is sent to the
// processor unless it succeeds.
func ParseCheckoutRequest(req *models.CheckoutRequest) (*models.PaymentSessionInput, *ServiceError) {
	email, _ := req.Email.(string)
	email = normalizeEmail(email)
	if email == "" {
		return nil, &ServiceError{StatusCode: http.StatusBadRequest, Message: MsgEmailRequired}
	}

	price, ok := numberOf(req.Price)
	if !ok || !pricing.ValidAmount(price) {
		return nil, &ServiceError{StatusCode: http.StatusBadRequest, Message: MsgInvalidPrice}
	}

	var orderID string
	switch v := req.OrderID.(type) {
	case nil:
	case string:
		orderID = strings.TrimSpace(v)
	case float64:
		orderID = strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		orderID = v.String()
	default:
		return nil, &ServiceError{StatusCode: http.StatusBadRequest, Message: MsgInvalidOrderID}
	}

	return &models.PaymentSessionInput{
		Email:          email,
		Price:          price,
		AmountCents:    pricing.ToMinorUnits(price),
		OrderID:        orderID,
		IdempotencyKey: strings.TrimSpace(req.IdempotencyKey),
	}, nil
}

func numberOf(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// CreatePaymentSession creates a customer, an ephemeral key and a payment
// intent. With both an order id and an idempotency key, a repeated request
// replays the first session instead of creating new processor objects.
func (s *checkoutServiceImpl) CreatePaymentSession(ctx context.Context, req *models.CheckoutRequest) (*models.CheckoutResponse, *ServiceError) {
	log := logger.FromContext(ctx, s.logger)

	in, svcErr := ParseCheckoutRequest(req)
	if svcErr != nil {
		log.Warn("Rejected checkout request", zap.String("reason", svcErr.Message))
		return nil, svcErr
	}

	dedupe := s.sessions != nil && in.OrderID != "" && in.IdempotencyKey != ""
	if dedupe {
		cached, err := s.sessions.Reserve(ctx, in.OrderID, in.IdempotencyKey)
		switch {
		case errors.Is(err, repository.ErrSessionInFlight):
			return nil, &ServiceError{StatusCode: http.StatusConflict, Message: MsgSessionInProgress}
		case err != nil:
			log.Warn("Idempotency store unavailable, continuing without replay protection",
				zap.String("order_id", in.OrderID), zap.Error(err))
			dedupe = false
		case cached != nil:
			log.Info("Replaying cached payment session", zap.String("order_id", in.OrderID))
			count(ctx, s.metrics, aws_pkg.MetricPaymentSessionsReplayed)
			return s.response(cached), nil
		}
	}

	session, err := s.createSession(ctx, in)
	if err != nil {
		if dedupe {
			if relErr := s.sessions.Release(ctx, in.OrderID, in.IdempotencyKey); relErr != nil {
				log.Warn("Failed to release idempotency claim", zap.Error(relErr))
			}
		}
		log.Error("Payment session creation failed",
			zap.String("order_id", in.OrderID),
			zap.Int64("amount", in.AmountCents),
			zap.Error(err),
		)
		count(ctx, s.metrics, aws_pkg.MetricPaymentSessionsFailed)
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: MsgInternalError}
	}

	if dedupe {
		if err := s.sessions.Save(ctx, in.OrderID, in.IdempotencyKey, session); err != nil {
			log.Warn("Failed to cache payment session", zap.String("order_id", in.OrderID), zap.Error(err))
		}
	}

	log.Info("Payment session created",
		zap.String("order_id", in.OrderID),
		zap.String("customer", session.Customer),
		zap.String("payment_intent_id", session.PaymentIntentID),
		zap.Int64("amount", in.AmountCents),
	)
	count(ctx, s.metrics, aws_pkg.MetricPaymentSessionsCreated)
	return s.response(session), nil
}

func (s *checkoutServiceImpl) createSession(ctx context.Context, in *models.PaymentSessionInput) (*models.PaymentSession, error) {
	customerID, err := s.provider.CreateCustomer(ctx, providers.CustomerRequest{
		Email:          in.Email,
		OrderID:        in.OrderID,
		IdempotencyKey: in.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}

	ephemeralKey, err := s.provider.CreateEphemeralKey(ctx, customerID, in.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	intent, err := s.provider.CreatePaymentIntent(ctx, providers.PaymentIntentRequest{
		CustomerID:     customerID,
		AmountCents:    in.AmountCents,
		Currency:       pricing.Currency,
		Email:          in.Email,
		OrderID:        in.OrderID,
		IdempotencyKey: in.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}
	if customerID == "" || ephemeralKey == "" || intent.ClientSecret == "" {
		return nil, errors.New("payment processor returned an incomplete session")
	}

	return &models.PaymentSession{
		Customer:        customerID,
		EphemeralKey:    ephemeralKey,
		PaymentIntent:   intent.ClientSecret,
		PaymentIntentID: intent.ID,
	}, nil
}

func (s *checkoutServiceImpl) response(session *models.PaymentSession) *models.CheckoutResponse {
	return &models.CheckoutResponse{
		Success:        true,
		Message:        MsgSessionCreated,
		EphemeralKey:   session.EphemeralKey,
		Customer:       session.Customer,
		PaymentIntent:  session.PaymentIntent,
		PublishableKey: s.publishableKey,
	}
}
