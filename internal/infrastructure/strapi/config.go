package strapi

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/cms"
)

// Defaults applied by Config.Validate
const (
	DefaultLocale      = "en"
	DefaultSystemIDKey = "systemId"
	DefaultTimeout     = 30 * time.Second
	DefaultRateLimit   = 20.0
	DefaultRateBurst   = 10
)

// Config holds the connection settings for the CMS REST API
type Config struct {
	// BaseURL is the API root, e.g. https://cms.example.com/api
	BaseURL string `json:"base_url" validate:"required,url"`
	// APIKey is the bearer token with read/write access to the content types
	APIKey string `json:"api_key" validate:"required"`
	// DefaultLocale is used for reads that do not specify a locale
	DefaultLocale string `json:"default_locale"`
	// SystemIDKey is the CMS field holding the commerce entity id
	SystemIDKey string `json:"system_id_key" validate:"omitempty,attribute"`
	// Timeout bounds every request
	Timeout time.Duration `json:"timeout" validate:"gte=0"`
	// RateLimit is the outbound request rate in requests per second. 0 disables pacing.
	RateLimit float64 `json:"rate_limit" validate:"gte=0"`
	// RateBurst is the limiter bucket size
	RateBurst int `json:"rate_burst" validate:"gte=0"`
}

var validate = newValidator()

// attributeName matches CMS attribute names such as systemId or external_system_id
var attributeName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("attribute", func(fl validator.FieldLevel) bool {
		return attributeName.MatchString(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks required settings and fills defaults.
// Failures are returned as *cms.ConfigurationError.
func (c *Config) Validate() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.APIKey = strings.TrimSpace(c.APIKey)

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			reason := ""
			if fe.Tag() != "required" {
				reason = "is invalid (" + fe.Tag() + ")"
			}
			return &cms.ConfigurationError{Field: fe.Field(), Reason: reason}
		}
		return &cms.ConfigurationError{Field: "cms", Reason: err.Error()}
	}

	if c.DefaultLocale == "" {
		c.DefaultLocale = DefaultLocale
	}
	if c.SystemIDKey == "" {
		c.SystemIDKey = DefaultSystemIDKey
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit > 0 && c.RateBurst == 0 {
		c.RateBurst = DefaultRateBurst
	}
	return nil
}
