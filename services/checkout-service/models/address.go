package models

import (
	"time"

	"github.com/google/uuid"
)

// Address is a user's saved shipping address. One per user, upserted.
type Address struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserEmail string    `gorm:"type:varchar(320);not null;uniqueIndex" json:"user_email"`
	ShippingAddress
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
