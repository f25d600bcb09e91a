package router

import (
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/logger"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/telemetry"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/interfaces/http/handler"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/interfaces/http/middleware"
)

// Options wires the engine
type Options struct {
	Logger *zap.Logger

	CORS           middleware.CORSConfig
	MaxBodySize    int64
	TrustedProxies []string

	TracingEnabled bool
	ServiceName    string
	MeterProvider  *telemetry.MeterProvider
	// ProfilingEnabled adds route labels to continuous profiles
	ProfilingEnabled bool

	// Swagger guards /swagger; the docs package must be linked in for it to serve anything
	Swagger middleware.SwaggerConfig

	// TokenValidator guards the admin routes
	TokenValidator middleware.TokenValidator
	// SyncRateLimit caps admin sync triggers per client; 0 disables
	SyncRateLimit int

	Storefront *handler.StorefrontHandler
	Sync       *handler.SyncHandler
	System     *handler.SystemHandler
}

// quietPaths are polled constantly and stay out of the info logs and traces
var quietPaths = []string{"/health", "/api/v1/ping"}

// NewEngine builds the gin engine with the middleware chain and all routes
func NewEngine(opts Options) (*gin.Engine, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		middleware.TracingWithConfig(middleware.TracingConfig{
			Enabled:     opts.TracingEnabled,
			ServiceName: opts.ServiceName,
			SkipPaths:   quietPaths,
		}),
		middleware.SpanEnricher(),
		middleware.Profiling(middleware.ProfilingConfig{
			Enabled:          opts.ProfilingEnabled,
			SkipPaths:        quietPaths,
			SkipPathPrefixes: []string{"/swagger"},
		}),
		middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			Enabled:       opts.MeterProvider != nil,
			MeterProvider: opts.MeterProvider,
			Logger:        log,
		}),
		logger.GinMiddleware(log, quietPaths...),
		middleware.CORSWithConfig(opts.CORS),
		middleware.Secure(),
	)
	if opts.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(opts.MaxBodySize))
	}

	r := NewRouter(engine)

	system := NewDomainGroup("system", "")
	system.GET("/health", opts.System.Health)
	system.Group("api", "/api/v1").GET("/ping", opts.System.Ping)
	r.Register(system)

	store := NewDomainGroup("storefront", "/store/cms")
	store.GET("/products/:id", opts.Storefront.GetProduct)
	store.GETAndPOST("/collections/:id", opts.Storefront.GetCollection)
	store.GETAndPOST("/product-categories/:id", opts.Storefront.GetCategory)
	store.GETAndPOST("/categories/:id", opts.Storefront.GetCategory)
	store.GET("/header", opts.Storefront.GetHeader)
	store.GET("/footer", opts.Storefront.GetFooter)
	r.Register(store)

	adminAuth := middleware.AdminAuth(middleware.AdminAuthConfig{
		Validator: opts.TokenValidator,
		Logger:    log,
	})
	admin := NewDomainGroup("admin", "/admin").Use(adminAuth)
	trigger := []gin.HandlerFunc{opts.Sync.TriggerSync}
	if opts.SyncRateLimit > 0 {
		limiter := middleware.NewRateLimiter(opts.SyncRateLimit, time.Minute)
		trigger = append([]gin.HandlerFunc{middleware.RateLimitByKey(limiter, middleware.GetActorID)}, trigger...)
	}
	admin.POST("/cms/sync", trigger...)
	admin.POST("/strapi/sync", trigger...)
	r.Register(admin)

	r.Setup()

	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(opts.Swagger, adminAuth),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)
	return engine, nil
}
