// Package pricing holds the money rules shared by the storefront client and
// the checkout service.
package pricing

import "math"

const (
	// FreeShippingThreshold is the subtotal that must be exceeded for free shipping.
	FreeShippingThreshold = 500.00
	// FlatShippingFee is charged when the subtotal does not exceed the threshold.
	FlatShippingFee = 5.99
	// Currency is the only currency payment intents are created in.
	Currency = "usd"
)

// Quote is the price breakdown shown at checkout.
type Quote struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Total    float64 `json:"total"`
}

// ShippingCost returns 0 when subtotal is strictly above the threshold, the flat fee otherwise.
func ShippingCost(subtotal float64) float64 {
	if subtotal > FreeShippingThreshold {
		return 0
	}
	return FlatShippingFee
}

// QuoteFor builds the breakdown for a cart subtotal.
func QuoteFor(subtotal float64) Quote {
	shipping := ShippingCost(subtotal)
	return Quote{Subtotal: subtotal, Shipping: shipping, Total: subtotal + shipping}
}

// ToMinorUnits converts a decimal amount to integer cents, rounding half away from zero.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// ValidAmount reports whether amount is a finite, strictly positive number.
func ValidAmount(amount float64) bool {
	return !math.IsNaN(amount) && !math.IsInf(amount, 0) && amount > 0
}

// SameAmount compares two amounts at cent precision.
func SameAmount(a, b float64) bool {
	return ToMinorUnits(a) == ToMinorUnits(b)
}
