package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/telemetry"
)

// ProfilingConfig holds configuration for the profiling middleware.
type ProfilingConfig struct {
	// Enabled controls whether profiling labels are added to requests.
	Enabled bool
	// SkipPaths are exact paths left unlabeled.
	SkipPaths []string
	// SkipPathPrefixes are path prefixes left unlabeled.
	SkipPathPrefixes []string
}

// DefaultProfilingConfig labels everything except health checks and the API docs.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled:          true,
		SkipPaths:        []string{"/health", "/api/v1/ping"},
		SkipPathPrefixes: []string{"/swagger"},
	}
}

// Profiling attaches route and method pprof labels to the request goroutine so
// Pyroscope can split storefront reads from admin-triggered syncs.
// Unmatched routes are left unlabeled.
func Profiling(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		route := c.FullPath()
		if route == "" || skipProfiling(cfg, path) {
			c.Next()
			return
		}

		telemetry.WithProfilingLabels(c.Request.Context(), map[string]string{
			telemetry.ProfilingLabelRoute:  route,
			telemetry.ProfilingLabelMethod: c.Request.Method,
		}, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func skipProfiling(cfg ProfilingConfig, path string) bool {
	for _, p := range cfg.SkipPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range cfg.SkipPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
