package dto

import (
	"errors"
	"net/http"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/cms"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/commerce"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/shared"
)

// Error codes
// Format: ERR_<CATEGORY>_<DESCRIPTION>
const (
	ErrCodeInternal       = "ERR_INTERNAL"
	ErrCodeBadRequest     = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON    = "ERR_INVALID_JSON"
	ErrCodeUnauthorized   = "ERR_UNAUTHORIZED"
	ErrCodeForbidden      = "ERR_FORBIDDEN"
	ErrCodeTokenExpired   = "ERR_TOKEN_EXPIRED"
	ErrCodeNotFound       = "ERR_NOT_FOUND"
	ErrCodeCMSUnavailable = "ERR_CMS_UNAVAILABLE"
	ErrCodeCMSRequest     = "ERR_CMS_REQUEST"
	ErrCodeUnavailable    = "ERR_SERVICE_UNAVAILABLE"
	ErrCodeTooLarge       = "ERR_REQUEST_TOO_LARGE"
	ErrCodeRateLimited    = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:       http.StatusInternalServerError,
	ErrCodeBadRequest:     http.StatusBadRequest,
	ErrCodeInvalidJSON:    http.StatusBadRequest,
	ErrCodeUnauthorized:   http.StatusUnauthorized,
	ErrCodeForbidden:      http.StatusForbidden,
	ErrCodeTokenExpired:   http.StatusUnauthorized,
	ErrCodeNotFound:       http.StatusNotFound,
	ErrCodeCMSUnavailable: http.StatusInternalServerError,
	ErrCodeCMSRequest:     http.StatusInternalServerError,
	ErrCodeUnavailable:    http.StatusServiceUnavailable,
	ErrCodeTooLarge:       http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:    http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorCode classifies an error returned by the application layer.
// CMS failures stay 500 so storefront reads never return partial content.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, commerce.ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, commerce.ErrInvalidEntityID):
		return ErrCodeBadRequest
	case errors.Is(err, cms.ErrUnavailable):
		return ErrCodeCMSUnavailable
	case errors.Is(err, cms.ErrRequestFailed):
		return ErrCodeCMSRequest
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		if code, ok := domainCodes[de.Code]; ok {
			return code
		}
	}
	return ErrCodeInternal
}

var domainCodes = map[string]string{
	shared.CodeNotFound:     ErrCodeNotFound,
	shared.CodeInvalidInput: ErrCodeBadRequest,
	shared.CodeUnavailable:  ErrCodeUnavailable,
}
