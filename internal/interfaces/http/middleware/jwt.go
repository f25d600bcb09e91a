package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/auth"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/interfaces/http/dto"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	JWTActorIDKey = "jwt_actor_id"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenValidator validates admin bearer tokens
type TokenValidator interface {
	ValidateAdminToken(token string) (*auth.Claims, error)
}

// AdminAuthConfig holds configuration for the admin auth middleware
type AdminAuthConfig struct {
	// Validator is required for token validation
	Validator TokenValidator
	// Logger for rejected requests; nop when nil
	Logger *zap.Logger
}

// AdminAuth rejects requests without a valid admin bearer token
func AdminAuth(cfg AdminAuthConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			handleAuthError(c, log, auth.ErrInvalidToken, "Authorization header is required")
			return
		}
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			handleAuthError(c, log, auth.ErrInvalidToken, "Authorization header must use the Bearer scheme")
			return
		}

		claims, err := cfg.Validator.ValidateAdminToken(strings.TrimPrefix(authHeader, BearerPrefix))
		if err != nil {
			handleAuthError(c, log, err, "Token validation failed")
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTActorIDKey, claims.ActorID)
		log.Debug("Admin authenticated", zap.String("actor_id", claims.ActorID))
		c.Next()
	}
}

func handleAuthError(c *gin.Context, log *zap.Logger, err error, message string) {
	log.Warn("Admin authentication failed",
		zap.Error(err),
		zap.String("reason", message),
		zap.String("path", c.Request.URL.Path),
	)

	status := http.StatusUnauthorized
	code := dto.ErrCodeUnauthorized
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code = dto.ErrCodeTokenExpired
		message = "Token has expired"
	case errors.Is(err, auth.ErrForbiddenRole):
		status = http.StatusForbidden
		code = dto.ErrCodeForbidden
		message = "Admin role required"
	}

	c.AbortWithStatusJSON(status, dto.ErrorResponse{
		Message:   message,
		Code:      code,
		RequestID: GetRequestID(c),
	})
}

// GetJWTClaims retrieves the admin claims set by AdminAuth
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetActorID returns the authenticated admin actor ID
func GetActorID(c *gin.Context) string {
	return c.GetString(JWTActorIDKey)
}
