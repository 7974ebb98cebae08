package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment statuses. An order moves from pending to paid exactly once.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

// Order is a placed checkout attempt. Items and the shipping address are
// snapshots taken at placement time.
type Order struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id" dynamodbav:"id"`
	UserEmail       string          `gorm:"type:varchar(320);not null;index" json:"user_email" dynamodbav:"user_email"`
	TotalPrice      float64         `gorm:"type:numeric(12,2);not null" json:"total_price" dynamodbav:"total_price"`
	Items           []OrderItem     `gorm:"serializer:json;type:jsonb;not null" json:"items" dynamodbav:"items"`
	PaymentStatus   string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"payment_status" dynamodbav:"payment_status"`
	PaymentIntentID string          `gorm:"type:varchar(255)" json:"payment_intent_id,omitempty" dynamodbav:"payment_intent_id,omitempty"`
	PaidAt          *time.Time      `json:"paid_at,omitempty" dynamodbav:"paid_at,omitempty"`
	ShippingAddress ShippingAddress `gorm:"serializer:json;type:jsonb;not null" json:"shipping_address" dynamodbav:"shipping_address"`
	TrackingCode    string          `gorm:"type:varchar(32)" json:"tracking_code,omitempty" dynamodbav:"tracking_code,omitempty"`
	ShippingStatus  string          `gorm:"type:varchar(64)" json:"shipping_status,omitempty" dynamodbav:"shipping_status,omitempty"`
	TrackingHistory []TrackingEntry `gorm:"serializer:json;type:jsonb" json:"tracking_history,omitempty" dynamodbav:"tracking_history,omitempty"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at" dynamodbav:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at" dynamodbav:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-" dynamodbav:"-"`
}

// BeforeCreate assigns the id client-side so it is known before the insert returns.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem is a snapshot of one cart line.
type OrderItem struct {
	ProductID int64   `json:"product_id" dynamodbav:"product_id" binding:"required"`
	Quantity  int     `json:"quantity" dynamodbav:"quantity" binding:"required,min=1"`
	Price     float64 `json:"price" dynamodbav:"price" binding:"required,gt=0"`
	Title     string  `json:"title" dynamodbav:"title" binding:"required"`
	Image     string  `json:"image" dynamodbav:"image"`
}

// ShippingAddress is the delivery address. Every field is required; blank
// fields are reported by MissingFields rather than at bind time.
type ShippingAddress struct {
	Phone      string `json:"phone" dynamodbav:"phone"`
	Street     string `json:"street" dynamodbav:"street"`
	City       string `json:"city" dynamodbav:"city"`
	State      string `json:"state" dynamodbav:"state"`
	PostalCode string `json:"postal_code" dynamodbav:"postal_code"`
	Country    string `json:"country" dynamodbav:"country"`
}

// MissingFields lists the json names of blank fields.
func (a ShippingAddress) MissingFields() []string {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"phone", a.Phone},
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"postal_code", a.PostalCode},
		{"country", a.Country},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// CreateOrderRequest is the body of POST /orders.
type CreateOrderRequest struct {
	TotalPrice      float64         `json:"total_price" binding:"required,gt=0"`
	Items           []OrderItem     `json:"items" binding:"required,min=1,dive"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
}

// ConfirmPaymentRequest is the body of POST /orders/:id/confirm-payment.
// PaymentIntent is the client secret (or id) returned by /checkout.
type ConfirmPaymentRequest struct {
	PaymentIntent string `json:"payment_intent" binding:"required"`
}

// ConfirmPaymentResult reports whether this call performed the transition.
type ConfirmPaymentResult struct {
	Order       *Order `json:"order"`
	AlreadyPaid bool   `json:"already_paid"`
}

// OrderListResponse is one page of a user's orders, newest first.
type OrderListResponse struct {
	Orders []Order `json:"orders"`
	Total  int64   `json:"total"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
}
