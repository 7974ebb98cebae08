package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shopcart/storefront/services/checkout-service/middleware"
	"github.com/shopcart/storefront/services/checkout-service/models"
	"github.com/shopcart/storefront/services/checkout-service/services"
	apperrors "github.com/shopcart/storefront/services/common/errors"
)

// OrderController handles HTTP requests for the order book.
type OrderController struct {
	orderService services.OrderService
}

func NewOrderController(svc services.OrderService) *OrderController {
	return &OrderController{orderService: svc}
}

// CreateOrder handles POST /orders
func (oc *OrderController) CreateOrder(ctx *gin.Context) {
	var req models.CreateOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		renderBindError(ctx, err)
		return
	}

	order, svcErr := oc.orderService.CreateOrder(ctx.Request.Context(), middleware.GetUserEmail(ctx), &req)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"order": order})
}

// ListOrders handles GET /orders?page=&limit=
func (oc *OrderController) ListOrders(ctx *gin.Context) {
	page, limit := parsePaginationParams(ctx)

	list, svcErr := oc.orderService.ListOrders(ctx.Request.Context(), middleware.GetUserEmail(ctx), page, limit)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, list)
}

// GetOrder handles GET /orders/:id
func (oc *OrderController) GetOrder(ctx *gin.Context) {
	id, ok := orderIDParam(ctx)
	if !ok {
		return
	}

	order, svcErr := oc.orderService.GetOrder(ctx.Request.Context(), middleware.GetUserEmail(ctx), id)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"order": order})
}

// DeleteOrder handles DELETE /orders/:id
func (oc *OrderController) DeleteOrder(ctx *gin.Context) {
	id, ok := orderIDParam(ctx)
	if !ok {
		return
	}

	if svcErr := oc.orderService.DeleteOrder(ctx.Request.Context(), middleware.GetUserEmail(ctx), id); svcErr != nil {
		renderError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Order deleted"})
}

// ConfirmPayment handles POST /orders/:id/confirm-payment
func (oc *OrderController) ConfirmPayment(ctx *gin.Context) {
	id, ok := orderIDParam(ctx)
	if !ok {
		return
	}

	var req models.ConfirmPaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		renderBindError(ctx, err)
		return
	}

	res, svcErr := oc.orderService.ConfirmPayment(ctx.Request.Context(), middleware.GetUserEmail(ctx), id, req.PaymentIntent)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}

	message := "Payment confirmed"
	if res.AlreadyPaid {
		message = "Order already paid"
	}
	ctx.JSON(http.StatusOK, gin.H{"message": message, "order": res.Order, "already_paid": res.AlreadyPaid})
}

// orderIDParam parses :id, writing a 400 when it is not a uuid.
func orderIDParam(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		_ = ctx.Error(apperrors.New(http.StatusBadRequest, "Invalid order id", err))
		return uuid.Nil, false
	}
	return id, true
}

// parsePaginationParams extracts and validates page/limit query params.
func parsePaginationParams(ctx *gin.Context) (int, int) {
	const maxLimit = 100
	pageInt, limitInt := 1, 10
	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		pageInt = p
	}
	if l, err := strconv.Atoi(ctx.DefaultQuery("limit", "10")); err == nil && l > 0 {
		if l > maxLimit {
			l = maxLimit
		}
		limitInt = l
	}
	return pageInt, limitInt
}
