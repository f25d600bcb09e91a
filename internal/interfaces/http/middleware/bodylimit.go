package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/interfaces/http/dto"
)

// BodyLimit returns a middleware that limits request body size
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{
				Message:   "Request body exceeds maximum allowed size",
				Code:      dto.ErrCodeTooLarge,
				RequestID: GetRequestID(c),
			})
			return
		}

		// Bodies without a declared length are cut off while reading
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
