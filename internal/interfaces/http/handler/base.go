// Package handler implements the storefront, admin and system HTTP endpoints.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/logger"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/interfaces/http/dto"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Error sends an error response with an explicit status
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string, err error) {
	resp := dto.NewErrorResponse(code, message, err)
	resp.RequestID = middleware.GetRequestID(c)
	c.JSON(statusCode, resp)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string, err error) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message, err)
}

// NotFound sends a 404 response carrying only the message
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message, nil)
}

// HandleError maps an application error onto a response.
// Not-found answers with notFoundMessage, anything else with failMessage and the error text.
func (h *BaseHandler) HandleError(c *gin.Context, err error, notFoundMessage, failMessage string) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	code := dto.ErrorCode(err)
	status := dto.GetHTTPStatus(code)
	if status == http.StatusNotFound {
		h.NotFound(c, notFoundMessage)
		return
	}

	if status >= http.StatusInternalServerError {
		logger.GetGinLogger(c).Error(failMessage, zap.Error(err))
	}
	h.Error(c, status, code, failMessage, err)
}
