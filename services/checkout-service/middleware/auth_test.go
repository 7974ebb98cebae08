package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shopcart/storefront/services/checkout-service/middleware"
	"github.com/shopcart/storefront/services/common/auth"
)

const secret = "test-secret"

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", middleware.AuthMiddleware(auth.NewTokenParser(secret), zap.NewNop()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"email": middleware.GetUserEmail(c), "id": middleware.GetUserID(c)})
	})
	return r
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	token, err := auth.SignAccessToken(secret, "user-1", "Ana@Example.com", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	setupRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":"ana@example.com","id":"user-1"}`, w.Body.String())
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	wrongSecret, err := auth.SignAccessToken("other", "user-1", "ana@example.com", time.Hour)
	require.NoError(t, err)
	expired, err := auth.SignAccessToken(secret, "user-1", "ana@example.com", -time.Minute)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":      "",
		"not bearer":   "Basic abc",
		"wrong secret": "Bearer " + wrongSecret,
		"expired":      "Bearer " + expired,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			setupRouter().ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			want := `{"error":"Invalid or expired token"}`
			if header == "" {
				want = `{"error":"Authorization header required"}`
			}
			assert.JSONEq(t, want, w.Body.String())
		})
	}
}
