package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/devx-commerce/medusa-strapi-plugin/docs"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/application/cmssync"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/application/storefront"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/shared"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/auth"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/cache"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/config"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/event"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/logger"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/persistence"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/scheduler"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/strapi"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/telemetry"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/interfaces/http/handler"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/interfaces/http/middleware"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/interfaces/http/router"
)

//go:generate swag init -d ../.. -g cmd/server/main.go -o ../../docs

//	@title			CMS Sync API
//	@version		1.0
//	@description	Keeps Strapi content entries in step with the Medusa catalog and serves catalog entities merged with their CMS content.
//	@BasePath		/

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Medusa admin token. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	bootLog, err := logger.NewForEnvironment(cfg.App.Env)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// The OTLP log pipeline has to exist before the final logger so zap can tee into it
	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize OTLP logs", zap.Error(err))
	}

	log, err := logger.New(logCfg, logsProvider.ZapCore())
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting CMS sync service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiling.Enabled,
		ServerAddress:     cfg.Profiling.ServerAddress,
		ApplicationName:   cfg.Profiling.ApplicationName,
		BasicAuthUser:     cfg.Profiling.BasicAuthUser,
		BasicAuthPassword: cfg.Profiling.BasicAuthPassword,
		ProfileTypes:      cfg.Profiling.ProfileTypes,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && cfg.Profiling.SpanProfiles {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	syncMetrics, err := telemetry.NewSyncMetrics(meterProvider)
	if err != nil {
		log.Fatal("Failed to create sync metrics", zap.Error(err))
	}

	// Commerce database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Log.SlowQueryThreshold))
	db, err := persistence.Open(ctx, &cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")
	catalog := persistence.NewCatalogStore(db.DB)

	// Redis locks and idempotency, with in-process fallbacks unless Redis is required
	cacheFactory := cache.NewFactory(cfg.Redis, cache.WithLogger(log))
	locker, err := cacheFactory.CreateLocker(ctx, cmssync.NewLocalLocker())
	if err != nil {
		log.Fatal("Failed to create sync locker", zap.Error(err))
	}
	idempotencyStore, err := cacheFactory.CreateIdempotencyStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// CMS client
	cmsClient, err := strapi.NewClient(strapi.Config{
		BaseURL:       cfg.CMS.BaseURL,
		APIKey:        cfg.CMS.APIKey,
		DefaultLocale: cfg.CMS.DefaultLocale,
		SystemIDKey:   cfg.CMS.SystemIDKey,
		Timeout:       cfg.CMS.Timeout,
		RateLimit:     cfg.CMS.RateLimit,
		RateBurst:     cfg.CMS.RateBurst,
	}, strapi.WithLogger(log))
	if err != nil {
		log.Fatal("Invalid CMS configuration", zap.Error(err))
	}
	if cfg.CMS.CheckOnStartup {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.CMS.Timeout)
		err := cmsClient.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Fatal("Failed to connect to Strapi", zap.Error(err))
		}
		log.Info("CMS reachable", zap.String("base_url", cmsClient.Config().BaseURL))
	}

	// Sync application
	reconciler := cmssync.NewReconciliationService(cmsClient, locker, cmssync.Options{
		SystemIDKey:   cmsClient.Config().SystemIDKey,
		DefaultLocale: cmsClient.Config().DefaultLocale,
	}, log, cmssync.WithMetrics(syncMetrics))
	workflow := cmssync.NewWorkflow(reconciler, catalog, log)
	resyncer := cmssync.NewResyncer(catalog, workflow, log)

	// Event bus
	bus := event.NewInMemoryEventBus(log,
		event.WithBusConfig(event.BusConfig{
			Workers:        cfg.Event.Workers,
			QueueSize:      cfg.Event.QueueSize,
			HandlerTimeout: cfg.Event.HandlerTimeout,
		}),
		event.WithDispatchObserver(syncMetrics),
	)
	idempotency := shared.IdempotencyConfig{
		Enabled: cfg.Event.IdempotencyEnabled,
		TTL:     cfg.Event.IdempotencyTTL,
	}
	for _, h := range cmssync.NewHandlers(catalog, workflow, resyncer, log).All() {
		bus.Subscribe(event.NewIdempotentHandler(h, idempotencyStore, log,
			event.WithIdempotencyConfig(idempotency),
			event.WithDuplicateObserver(syncMetrics),
		), h.EventTypes()...)
	}
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	var kafkaSource *event.KafkaSource
	if cfg.Kafka.Enabled {
		kafkaSource, err = event.NewKafkaSource(event.KafkaSourceConfig{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.Topic,
			GroupID:  cfg.Kafka.GroupID,
			MinBytes: cfg.Kafka.MinBytes,
			MaxBytes: cfg.Kafka.MaxBytes,

			MaxAttempts:  cfg.Kafka.MaxAttempts,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		}, bus, log)
		if err != nil {
			log.Fatal("Invalid Kafka configuration", zap.Error(err))
		}
		if err := kafkaSource.Start(ctx); err != nil {
			log.Fatal("Failed to start Kafka source", zap.Error(err))
		}
	}

	resyncTrigger, err := scheduler.NewResyncTrigger(scheduler.ResyncTriggerConfig{
		Interval: cfg.Sync.ResyncInterval,
	}, bus, log)
	if err != nil {
		log.Fatal("Invalid resync configuration", zap.Error(err))
	}
	if err := resyncTrigger.Start(ctx); err != nil {
		log.Fatal("Failed to start resync trigger", zap.Error(err))
	}

	// HTTP
	checks := map[string]handler.HealthCheck{
		"database": db.Ping,
		"cms":      cmsClient.Ping,
	}
	if cfg.Redis.Required {
		checks["redis"] = cacheFactory.Ping
	}
	engine, err := router.NewEngine(router.Options{
		Logger: log,
		CORS: middleware.CORSConfig{
			AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
			AllowMethods:     cfg.HTTP.CORSAllowMethods,
			AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
			ExposeHeaders:    []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		},
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		TracingEnabled: tracerProvider.IsEnabled(),
		ServiceName:    cfg.Telemetry.ServiceName,
		MeterProvider:  meterProvider,

		ProfilingEnabled: profiler.IsEnabled(),
		Swagger: middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		},

		TokenValidator: auth.NewJWTService(cfg.Auth),
		SyncRateLimit:  cfg.HTTP.SyncRateLimit,
		Storefront:     handler.NewStorefrontHandler(storefront.NewService(catalog, reconciler, log)),
		Sync:           handler.NewSyncHandler(bus),
		System:         handler.NewSystemHandler(checks),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := resyncTrigger.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping resync trigger", zap.Error(err))
	}
	if kafkaSource != nil {
		if err := kafkaSource.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping Kafka source", zap.Error(err))
		}
	}
	// Drains queued events before the stores they write to go away
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := cacheFactory.Close(); err != nil {
		log.Error("Error closing Redis", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down metrics", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracing", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := logsProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down OTLP logs", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
