package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shopcart/storefront/services/checkout-service/middleware"
	"github.com/shopcart/storefront/services/checkout-service/models"
	"github.com/shopcart/storefront/services/checkout-service/services"
)

type AddressController struct {
	addressService services.AddressService
}

func NewAddressController(svc services.AddressService) *AddressController {
	return &AddressController{addressService: svc}
}

// GetMyAddress handles GET /addresses/me
func (ac *AddressController) GetMyAddress(ctx *gin.Context) {
	addr, svcErr := ac.addressService.GetAddress(ctx.Request.Context(), middleware.GetUserEmail(ctx))
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"address": addr})
}

// SaveMyAddress handles PUT /addresses/me
func (ac *AddressController) SaveMyAddress(ctx *gin.Context) {
	var req models.ShippingAddress
	if err := ctx.ShouldBindJSON(&req); err != nil {
		renderBindError(ctx, err)
		return
	}

	addr, svcErr := ac.addressService.SaveAddress(ctx.Request.Context(), middleware.GetUserEmail(ctx), req)
	if svcErr != nil {
		renderError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"address": addr})
}
