package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/shopcart/storefront/services/checkout-service/controllers"
)

// Controllers groups every handler the service exposes.
type Controllers struct {
	Checkout *controllers.CheckoutController
	Orders   *controllers.OrderController
	Shipping *controllers.ShippingController
	Address  *controllers.AddressController
	Webhook  *controllers.WebhookController
}

// RegisterCheckoutRoutes sets up all checkout-service routes. auth guards
// everything scoped to a signed-in user.
func RegisterCheckoutRoutes(r *gin.Engine, c Controllers, auth gin.HandlerFunc) {
	// Public. The webhook authenticates with its Stripe signature.
	r.POST("/checkout", c.Checkout.CreatePaymentSession)
	r.POST("/webhooks/stripe", c.Webhook.StripeWebhook)

	orders := r.Group("/orders")
	orders.Use(auth)
	orders.POST("", c.Orders.CreateOrder)
	orders.GET("", c.Orders.ListOrders)
	orders.GET("/:id", c.Orders.GetOrder)
	orders.DELETE("/:id", c.Orders.DeleteOrder)
	orders.POST("/:id/confirm-payment", c.Orders.ConfirmPayment)
	orders.POST("/:id/shipping/start", c.Shipping.StartShipping)
	orders.POST("/:id/shipping/status", c.Shipping.UpdateStatus)

	addresses := r.Group("/addresses")
	addresses.Use(auth)
	addresses.GET("/me", c.Address.GetMyAddress)
	addresses.PUT("/me", c.Address.SaveMyAddress)
}
