package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopcart/storefront/services/checkout-service/models"
	"gorm.io/gorm"
)

// ErrOrderNotFound is returned when no live order has the requested id.
var ErrOrderNotFound = errors.New("order not found")

// OrderRepository defines data-access operations for orders.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByUserEmail(ctx context.Context, email string, page, limit int) ([]models.Order, int64, error)
	// MarkPaid moves a pending order to paid. It reports false without error
	// when the order was already paid.
	MarkPaid(ctx context.Context, id uuid.UUID, paymentIntentID string, paidAt time.Time) (bool, error)
	// StartShipping writes the first tracking code, status and history only
	// while the order has no tracking code. It reports false without error
	// when shipping had already started.
	StartShipping(ctx context.Context, order *models.Order) (bool, error)
	UpdateShipping(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// GormOrderRepository implements OrderRepository using GORM.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository.
func NewGormOrderRepository(db *gorm.DB) OrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	if err := r.db.WithContext(ctx).First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *GormOrderRepository) FindByUserEmail(ctx context.Context, email string, page, limit int) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("user_email = ?", email).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Where("user_email = ?", email).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *GormOrderRepository) MarkPaid(ctx context.Context, id uuid.UUID, paymentIntentID string, paidAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", id, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"payment_status":    models.PaymentStatusPaid,
			"payment_intent_id": paymentIntentID,
			"paid_at":           paidAt,
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark order %s paid: %w", id, res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	// Nothing matched: either the order is gone or it was paid already.
	if _, err := r.FindByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *GormOrderRepository) StartShipping(ctx context.Context, order *models.Order) (bool, error) {
	res := r.db.WithContext(ctx).Model(order).
		Where("tracking_code IS NULL OR tracking_code = ''").
		Select("tracking_code", "shipping_status", "tracking_history").
		Updates(order)
	if res.Error != nil {
		return false, fmt.Errorf("start shipping for order %s: %w", order.ID, res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	if _, err := r.FindByID(ctx, order.ID); err != nil {
		return false, err
	}
	return false, nil
}

func (r *GormOrderRepository) UpdateShipping(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Model(order).
		Select("tracking_code", "shipping_status", "tracking_history").
		Updates(order).Error
}

func (r *GormOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Order{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
