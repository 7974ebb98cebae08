package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/shopcart/storefront/services/checkout-service/models"
	"github.com/shopcart/storefront/services/checkout-service/repository"
)

// AddressService manages the single saved shipping address of each user.
type AddressService interface {
	GetAddress(ctx context.Context, email string) (*models.Address, *ServiceError)
	SaveAddress(ctx context.Context, email string, addr models.ShippingAddress) (*models.Address, *ServiceError)
}

type addressServiceImpl struct {
	repo   repository.AddressRepository
	logger *zap.Logger
}

func NewAddressService(repo repository.AddressRepository, logger *zap.Logger) AddressService {
	return &addressServiceImpl{repo: repo, logger: logger}
}

func (s *addressServiceImpl) GetAddress(ctx context.Context, email string) (*models.Address, *ServiceError) {
	addr, err := s.repo.FindByUserEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrAddressNotFound) {
		return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: "No shipping address saved"}
	}
	if err != nil {
		s.logger.Error("Failed to load address", zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to fetch address"}
	}
	return addr, nil
}

func (s *addressServiceImpl) SaveAddress(ctx context.Context, email string, addr models.ShippingAddress) (*models.Address, *ServiceError) {
	if missing := addr.MissingFields(); len(missing) > 0 {
		return nil, &ServiceError{
			StatusCode: http.StatusBadRequest,
			Message:    "Shipping address is incomplete: missing " + strings.Join(missing, ", "),
		}
	}

	record := &models.Address{UserEmail: normalizeEmail(email), ShippingAddress: addr}
	if err := s.repo.Upsert(ctx, record); err != nil {
		s.logger.Error("Failed to save address", zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to save address"}
	}

	// The upsert may have updated an existing row; return what is stored.
	stored, err := s.repo.FindByUserEmail(ctx, record.UserEmail)
	if err != nil {
		return record, nil
	}
	return stored, nil
}
