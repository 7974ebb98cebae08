package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	aws_pkg "github.com/shopcart/storefront/pkg/aws"
	"github.com/shopcart/storefront/services/checkout-service/models"
	"github.com/shopcart/storefront/services/checkout-service/repository"
)

const (
	MsgShippingStarted        = "Shipping started"
	MsgShippingAlreadyStarted = "Shipping already started"
	MsgOrderNotPaid           = "Order has not been paid"
	MsgShippingNotStarted     = "Shipping has not started for this order"
)

// ShippingService simulates carrier tracking for paid orders.
type ShippingService interface {
	StartShipping(ctx context.Context, email string, orderID uuid.UUID) (*models.ShippingStartedResponse, *ServiceError)
	// StartShippingForOrder is StartShipping without the ownership check, for
	// internal callers such as the order event consumer.
	StartShippingForOrder(ctx context.Context, orderID uuid.UUID) (*models.ShippingStartedResponse, *ServiceError)
	UpdateStatus(ctx context.Context, email string, orderID uuid.UUID, newStatus string) (*models.Order, *ServiceError)
}

type shippingServiceImpl struct {
	repo    repository.OrderRepository
	metrics Counter
	intn    func(n int) int
	now     func() time.Time
	logger  *zap.Logger
}

// NewShippingService creates a new ShippingService.
func NewShippingService(repo repository.OrderRepository, metrics Counter, logger *zap.Logger) ShippingService {
	return &shippingServiceImpl{
		repo:    repo,
		metrics: metrics,
		intn:    rand.Intn,
		now:     time.Now,
		logger:  logger,
	}
}

func (s *shippingServiceImpl) StartShipping(ctx context.Context, email string, orderID uuid.UUID) (*models.ShippingStartedResponse, *ServiceError) {
	order, svcErr := s.load(ctx, orderID)
	if svcErr != nil {
		return nil, svcErr
	}
	if order.UserEmail != normalizeEmail(email) {
		return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: MsgOrderNotFound}
	}
	return s.start(ctx, order)
}

func (s *shippingServiceImpl) StartShippingForOrder(ctx context.Context, orderID uuid.UUID) (*models.ShippingStartedResponse, *ServiceError) {
	order, svcErr := s.load(ctx, orderID)
	if svcErr != nil {
		return nil, svcErr
	}
	return s.start(ctx, order)
}

func (s *shippingServiceImpl) start(ctx context.Context, order *models.Order) (*models.ShippingStartedResponse, *ServiceError) {
	if order.PaymentStatus != models.PaymentStatusPaid {
		return nil, &ServiceError{StatusCode: http.StatusConflict, Message: MsgOrderNotPaid}
	}
	if order.TrackingCode != "" {
		return &models.ShippingStartedResponse{Message: MsgShippingAlreadyStarted, TrackingCode: order.TrackingCode}, nil
	}

	order.TrackingCode = s.trackingCode()
	order.ShippingStatus = models.ShippingStatusPreparing
	order.TrackingHistory = []models.TrackingEntry{{
		Status:    models.ShippingStatusPreparing,
		Location:  models.ShippingOriginLocation,
		UpdatedAt: s.now().UTC(),
	}}
	started, err := s.repo.StartShipping(ctx, order)
	if err != nil {
		s.logger.Error("Failed to start shipping", zap.String("order_id", order.ID.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to start shipping"}
	}
	if !started {
		// Another request won the race; report the code it stored.
		current, svcErr := s.load(ctx, order.ID)
		if svcErr != nil {
			return nil, svcErr
		}
		return &models.ShippingStartedResponse{Message: MsgShippingAlreadyStarted, TrackingCode: current.TrackingCode}, nil
	}

	s.logger.Info("Shipping started",
		zap.String("order_id", order.ID.String()),
		zap.String("tracking_code", order.TrackingCode),
	)
	count(ctx, s.metrics, aws_pkg.MetricShipmentsStarted)
	return &models.ShippingStartedResponse{Message: MsgShippingStarted, TrackingCode: order.TrackingCode}, nil
}

// UpdateStatus appends a tracking entry stamped with a random transit location.
func (s *shippingServiceImpl) UpdateStatus(ctx context.Context, email string, orderID uuid.UUID, newStatus string) (*models.Order, *ServiceError) {
	newStatus = strings.TrimSpace(newStatus)
	if newStatus == "" {
		return nil, &ServiceError{StatusCode: http.StatusBadRequest, Message: "new_status is required"}
	}

	order, svcErr := s.load(ctx, orderID)
	if svcErr != nil {
		return nil, svcErr
	}
	if order.UserEmail != normalizeEmail(email) {
		return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: MsgOrderNotFound}
	}
	if order.TrackingCode == "" {
		return nil, &ServiceError{StatusCode: http.StatusConflict, Message: MsgShippingNotStarted}
	}

	location := models.TransitLocations[s.intn(len(models.TransitLocations))]
	order.ShippingStatus = newStatus
	order.TrackingHistory = append(order.TrackingHistory, models.TrackingEntry{
		Status:    newStatus,
		Location:  location,
		UpdatedAt: s.now().UTC(),
	})
	if err := s.repo.UpdateShipping(ctx, order); err != nil {
		s.logger.Error("Failed to update shipping status", zap.String("order_id", order.ID.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to update shipping status"}
	}

	s.logger.Info("Shipping status updated",
		zap.String("order_id", order.ID.String()),
		zap.String("status", newStatus),
		zap.String("location", location),
	)
	return order, nil
}

func (s *shippingServiceImpl) load(ctx context.Context, orderID uuid.UUID) (*models.Order, *ServiceError) {
	order, err := s.repo.FindByID(ctx, orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: MsgOrderNotFound}
	}
	if err != nil {
		s.logger.Error("Failed to load order", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to fetch order"}
	}
	return order, nil
}

// trackingCode returns the prefix followed by six digits, 100000-999999.
func (s *shippingServiceImpl) trackingCode() string {
	return fmt.Sprintf("%s%d", models.TrackingCodePrefix, 100000+s.intn(900000))
}
