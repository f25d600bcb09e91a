package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/auth"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/config"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/interfaces/http/dto"
)

const testSecret = "test-secret-key-at-least-32-chars"

func newAdminRouter(t *testing.T) (*gin.Engine, *auth.JWTService) {
	t.Helper()
	svc := auth.NewJWTService(config.AuthConfig{JWTSecret: testSecret, Issuer: "medusa"})

	router := gin.New()
	router.Use(RequestID(), AdminAuth(AdminAuthConfig{Validator: svc}))
	router.POST("/admin/cms/sync", func(c *gin.Context) {
		c.String(http.StatusOK, GetActorID(c))
	})
	return router, svc
}

func doAuth(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/admin/cms/sync", nil)
	if header != "" {
		req.Header.Set(AuthHeaderKey, header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAdminAuth_ValidToken(t *testing.T) {
	router, svc := newAdminRouter(t)
	token, err := svc.GenerateToken("user_01", time.Minute)
	require.NoError(t, err)

	w := doAuth(router, BearerPrefix+token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user_01", w.Body.String())
}

func TestAdminAuth_Rejections(t *testing.T) {
	router, _ := newAdminRouter(t)

	customer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "medusa",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		ActorID: "cus_01",
		Role:    "customer",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "medusa",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		ActorID: "user_01",
		Role:    "admin",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing header", "", http.StatusUnauthorized, dto.ErrCodeUnauthorized},
		{"basic scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, dto.ErrCodeUnauthorized},
		{"garbage token", BearerPrefix + "nope", http.StatusUnauthorized, dto.ErrCodeUnauthorized},
		{"expired", BearerPrefix + expired, http.StatusUnauthorized, dto.ErrCodeTokenExpired},
		{"non-admin", BearerPrefix + customer, http.StatusForbidden, dto.ErrCodeForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doAuth(router, tt.header)
			assert.Equal(t, tt.status, w.Code)

			var body dto.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Message)
			assert.NotEmpty(t, body.RequestID)
		})
	}
}

func TestGetJWTClaims_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetJWTClaims(c))
	assert.Empty(t, GetActorID(c))
}
