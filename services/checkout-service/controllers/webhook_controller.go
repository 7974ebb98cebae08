package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shopcart/storefront/services/checkout-service/services"
	apperrors "github.com/shopcart/storefront/services/common/errors"
)

// maxWebhookBody matches the payload cap Stripe documents for webhook events.
const maxWebhookBody = 65536

type WebhookController struct {
	orderService services.OrderService
}

func NewWebhookController(svc services.OrderService) *WebhookController {
	return &WebhookController{orderService: svc}
}

// StripeWebhook handles POST /webhooks/stripe
func (wc *WebhookController) StripeWebhook(ctx *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxWebhookBody))
	if err != nil {
		_ = ctx.Error(apperrors.New(http.StatusRequestEntityTooLarge, "payload too large", err))
		return
	}

	if svcErr := wc.orderService.HandleWebhook(ctx.Request.Context(), payload, ctx.GetHeader("Stripe-Signature")); svcErr != nil {
		renderError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "received"})
}
