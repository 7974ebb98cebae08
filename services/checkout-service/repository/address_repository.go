package repository

import (
	"context"
	"errors"

	"github.com/shopcart/storefront/services/checkout-service/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrAddressNotFound = errors.New("address not found")

// AddressRepository stores one shipping address per user.
type AddressRepository interface {
	FindByUserEmail(ctx context.Context, email string) (*models.Address, error)
	Upsert(ctx context.Context, addr *models.Address) error
}

type GormAddressRepository struct {
	db *gorm.DB
}

func NewGormAddressRepository(db *gorm.DB) AddressRepository {
	return &GormAddressRepository{db: db}
}

func (r *GormAddressRepository) FindByUserEmail(ctx context.Context, email string) (*models.Address, error) {
	var a models.Address
	if err := r.db.WithContext(ctx).Where("user_email = ?", email).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAddressNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *GormAddressRepository) Upsert(ctx context.Context, addr *models.Address) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_email"}},
		DoUpdates: clause.AssignmentColumns([]string{"phone", "street", "city", "state", "postal_code", "country", "updated_at"}),
	}).Create(addr).Error
}
