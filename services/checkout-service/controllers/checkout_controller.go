package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shopcart/storefront/services/checkout-service/models"
	"github.com/shopcart/storefront/services/checkout-service/services"
)

// IdempotencyKeyHeader may carry the idempotency key instead of the body field.
const IdempotencyKeyHeader = "Idempotency-Key"

// CheckoutController serves the payment session broker.
type CheckoutController struct {
	checkoutService services.CheckoutService
}

func NewCheckoutController(svc services.CheckoutService) *CheckoutController {
	return &CheckoutController{checkoutService: svc}
}

// CreatePaymentSession handles POST /checkout
func (cc *CheckoutController) CreatePaymentSession(ctx *gin.Context) {
	var req models.CheckoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": services.MsgInvalidBody})
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = ctx.GetHeader(IdempotencyKeyHeader)
	}

	resp, svcErr := cc.checkoutService.CreatePaymentSession(ctx.Request.Context(), &req)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"success": false, "message": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, resp)
}
