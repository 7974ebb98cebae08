package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shopcart/storefront/services/common/auth"
	apperrors "github.com/shopcart/storefront/services/common/errors"
)

const (
	UserIDKey    = "userID"
	UserEmailKey = "userEmail"
)

// AuthMiddleware requires an "Authorization: Bearer <token>" access token and
// stores its subject and email on the context.
func AuthMiddleware(parser *auth.TokenParser, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			apperrors.Respond(c, apperrors.ErrMissingToken)
			return
		}
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(tokenStr) == "" {
			apperrors.Respond(c, apperrors.ErrInvalidToken)
			return
		}

		claims, err := parser.ParseAndValidateToken(strings.TrimSpace(tokenStr), auth.TokenTypeAccess)
		if err != nil {
			logger.Debug("Rejected bearer token", zap.Error(err))
			apperrors.Respond(c, apperrors.ErrInvalidToken)
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Set(UserEmailKey, strings.ToLower(strings.TrimSpace(claims.Email)))
		c.Next()
	}
}

func GetUserEmail(c *gin.Context) string {
	return c.GetString(UserEmailKey)
}

func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
