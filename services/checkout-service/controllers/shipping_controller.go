package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shopcart/storefront/services/checkout-service/middleware"
	"github.com/shopcart/storefront/services/checkout-service/models"
	"github.com/shopcart/storefront/services/checkout-service/services"
)

// ShippingController handles HTTP requests for shipping operations.
type ShippingController struct {
	shippingService services.ShippingService
}

// NewShippingController creates a new ShippingController.
func NewShippingController(svc services.ShippingService) *ShippingController {
	return &ShippingController{shippingService: svc}
}

// StartShipping handles POST /orders/:id/shipping/start
func (sc *ShippingController) StartShipping(ctx *gin.Context) {
	id, ok := orderIDParam(ctx)
	if !ok {
		return
	}

	resp, svcErr := sc.shippingService.StartShipping(ctx.Request.Context(), middleware.GetUserEmail(ctx), id)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// UpdateStatus handles POST /orders/:id/shipping/status
func (sc *ShippingController) UpdateStatus(ctx *gin.Context) {
	id, ok := orderIDParam(ctx)
	if !ok {
		return
	}

	var req models.UpdateShippingStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		renderBindError(ctx, err)
		return
	}

	order, svcErr := sc.shippingService.UpdateStatus(ctx.Request.Context(), middleware.GetUserEmail(ctx), id, req.NewStatus)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":          "Shipping status updated",
		"tracking_code":    order.TrackingCode,
		"shipping_status":  order.ShippingStatus,
		"tracking_history": order.TrackingHistory,
	})
}
