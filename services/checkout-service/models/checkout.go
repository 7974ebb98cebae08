package models

// CheckoutRequest is the body of POST /checkout. Email and Price are kept
// untyped so wrong JSON types can be reported with the documented messages
// instead of a generic bind error.
type CheckoutRequest struct {
	Email          interface{} `json:"email"`
	Price          interface{} `json:"price"`
	OrderID        interface{} `json:"order_id"`
	IdempotencyKey string      `json:"idempotency_key"`
}

// PaymentSessionInput is a validated CheckoutRequest.
type PaymentSessionInput struct {
	Email          string
	Price          float64
	AmountCents    int64
	OrderID        string
	IdempotencyKey string
}

// PaymentSession holds the three client tokens needed to present the payment sheet.
type PaymentSession struct {
	Customer        string `json:"customer"`
	EphemeralKey    string `json:"ephemeralKey"`
	PaymentIntent   string `json:"paymentIntent"`
	PaymentIntentID string `json:"-"`
}

// CheckoutResponse is the 200 body of POST /checkout.
type CheckoutResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	EphemeralKey   string `json:"ephemeralKey"`
	Customer       string `json:"customer"`
	PaymentIntent  string `json:"paymentIntent"`
	PublishableKey string `json:"publishableKey"`
}
