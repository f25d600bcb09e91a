package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/interfaces/http/dto"
)

// SwaggerConfig holds configuration for Swagger endpoint protection
type SwaggerConfig struct {
	Enabled     bool
	RequireAuth bool     // require an admin bearer token
	AllowedIPs  []string // single IPs or CIDRs; empty allows all
}

// SwaggerProtection guards the API docs.
// Disabled docs answer 404; an IP allow list answers 403 to other clients;
// RequireAuth runs the admin auth middleware before the docs handler.
// Malformed AllowedIPs entries are ignored.
func SwaggerProtection(cfg SwaggerConfig, adminAuth gin.HandlerFunc) gin.HandlerFunc {
	var allowedNets []*net.IPNet
	var allowedIPs []net.IP
	for _, entry := range cfg.AllowedIPs {
		if strings.Contains(entry, "/") {
			if _, network, err := net.ParseCIDR(entry); err == nil {
				allowedNets = append(allowedNets, network)
			}
			continue
		}
		if ip := net.ParseIP(entry); ip != nil {
			allowedIPs = append(allowedIPs, ip)
		}
	}

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.AbortWithStatusJSON(http.StatusNotFound, dto.ErrorResponse{
				Message:   "API documentation is not available",
				Code:      dto.ErrCodeNotFound,
				RequestID: GetRequestID(c),
			})
			return
		}

		if len(cfg.AllowedIPs) > 0 && !isIPAllowed(net.ParseIP(c.ClientIP()), allowedIPs, allowedNets) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{
				Message:   "Access to API documentation is restricted",
				Code:      dto.ErrCodeForbidden,
				RequestID: GetRequestID(c),
			})
			return
		}

		if cfg.RequireAuth && adminAuth != nil {
			adminAuth(c)
			if c.IsAborted() {
				return
			}
		}

		c.Next()
	}
}

func isIPAllowed(ip net.IP, allowedIPs []net.IP, allowedNets []*net.IPNet) bool {
	if ip == nil {
		return false
	}
	for _, allowed := range allowedIPs {
		if allowed.Equal(ip) {
			return true
		}
	}
	for _, network := range allowedNets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
