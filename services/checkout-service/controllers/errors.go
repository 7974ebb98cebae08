package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/shopcart/storefront/services/checkout-service/services"
	apperrors "github.com/shopcart/storefront/services/common/errors"
)

// renderError hands svcErr to apperrors.ErrorMiddleware, which writes {"error": ...}.
func renderError(ctx *gin.Context, svcErr *services.ServiceError) {
	_ = ctx.Error(apperrors.New(svcErr.StatusCode, svcErr.Message, svcErr))
}

func renderBindError(ctx *gin.Context, err error) {
	_ = ctx.Error(apperrors.InvalidRequest(err))
}
