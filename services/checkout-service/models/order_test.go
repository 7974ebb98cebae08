package models_test

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"

	"github.com/shopcart/storefront/services/checkout-service/models"
)

func TestCreateOrderRequest_IncompleteAddressPassesBinding(t *testing.T) {
	req := models.CreateOrderRequest{
		TotalPrice:      55.99,
		Items:           []models.OrderItem{{ProductID: 1, Quantity: 1, Price: 50, Title: "Mug"}},
		ShippingAddress: models.ShippingAddress{Phone: "1", Street: "s", City: "c", State: "st", Country: "US"},
	}

	assert.NoError(t, binding.Validator.ValidateStruct(&req))
	assert.Equal(t, []string{"postal_code"}, req.ShippingAddress.MissingFields())
}

func TestShippingAddress_MissingFields(t *testing.T) {
	assert.Empty(t, models.ShippingAddress{Phone: "1", Street: "s", City: "c", State: "st", PostalCode: "p", Country: "US"}.MissingFields())
	assert.Equal(t, []string{"street", "city"}, models.ShippingAddress{Phone: "1", Street: " ", State: "st", PostalCode: "p", Country: "US"}.MissingFields())
	assert.Len(t, models.ShippingAddress{}.MissingFields(), 6)
}
