// Package auth verifies the bearer tokens that guard the admin routes.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/config"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingActorID   = errors.New("missing actor_id in claims")
	ErrForbiddenRole    = errors.New("token role is not allowed")
)

// Claims are the admin token claims issued by the commerce backend
type Claims struct {
	jwt.RegisteredClaims
	ActorID   string `json:"actor_id"`
	ActorType string `json:"actor_type,omitempty"`
	Role      string `json:"role"`
}

// JWTService validates HS256 admin tokens
type JWTService struct {
	secret    []byte
	issuer    string
	adminRole string
}

// NewJWTService creates a JWTService from the auth settings
func NewJWTService(cfg config.AuthConfig) *JWTService {
	role := cfg.AdminRole
	if role == "" {
		role = "admin"
	}
	return &JWTService{
		secret:    []byte(cfg.JWTSecret),
		issuer:    cfg.Issuer,
		adminRole: role,
	}
}

// GenerateToken signs an admin token for actorID valid for ttl
func (s *JWTService) GenerateToken(actorID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   actorID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		ActorID:   actorID,
		ActorType: "user",
		Role:      s.adminRole,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ValidateAdminToken verifies signature, expiry, issuer and role and returns the claims
func (s *JWTService) ValidateAdminToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.ActorID == "" {
		return nil, ErrMissingActorID
	}
	if claims.Role != s.adminRole {
		return nil, ErrForbiddenRole
	}
	return claims, nil
}
