package models

import "time"

// Event types published on the order events topic.
const (
	EventOrderCreated = "order_created"
	EventOrderPaid    = "order_paid"
)

// OrderEvent is published to SNS (or Kafka) when an order changes state.
type OrderEvent struct {
	Type      string    `json:"type"`
	OrderID   string    `json:"order_id"`
	UserEmail string    `json:"user_email"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
