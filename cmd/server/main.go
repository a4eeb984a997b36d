package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	deliveryapp "github.com/restaurant-platform/backend/internal/application/delivery"
	"github.com/restaurant-platform/backend/internal/infrastructure/auth"
	"github.com/restaurant-platform/backend/internal/infrastructure/config"
	"github.com/restaurant-platform/backend/internal/infrastructure/lock"
	"github.com/restaurant-platform/backend/internal/infrastructure/logger"
	"github.com/restaurant-platform/backend/internal/infrastructure/metrics"
	"github.com/restaurant-platform/backend/internal/infrastructure/persistence"
	"github.com/restaurant-platform/backend/internal/infrastructure/providers"
	"github.com/restaurant-platform/backend/internal/infrastructure/queue"
	"github.com/restaurant-platform/backend/internal/infrastructure/resilience"
	"github.com/restaurant-platform/backend/internal/infrastructure/vault"
	"github.com/restaurant-platform/backend/internal/interfaces/http/handler"
	"github.com/restaurant-platform/backend/internal/interfaces/http/middleware"
	"github.com/restaurant-platform/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

//	@title			Delivery Provider Integration API
//	@version		1.0
//	@description	Multi-tenant integration engine connecting restaurant branches to delivery providers

//	@contact.name	API Support
//	@contact.url	https://github.com/restaurant-platform/backend

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

const (
	pushBreakerThreshold = 5
	pushBreakerCooldown  = 30 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting delivery engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database connection with GORM logging routed through zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogLevel)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Redis backs the webhook queue and the sync lock
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing redis client", zap.Error(err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	log.Info("Redis connected successfully")

	// Repositories
	configRepo := persistence.NewGormProviderConfigRepository(db.DB)
	entityMappingRepo := persistence.NewGormEntityMappingRepository(db.DB)
	orderMappingRepo := persistence.NewGormOrderMappingRepository(db.DB)
	syncJobRepo := persistence.NewGormMenuSyncJobRepository(db.DB)
	webhookEventRepo := persistence.NewGormWebhookEventRepository(db.DB)
	menuReader := persistence.NewGormMenuReader(db.DB)
	orderRepo := persistence.NewGormDeliveryOrderRepository(db.DB)

	// Credential vault
	credentialVault, err := vault.New(cfg.Vault.MasterKey, configRepo, log)
	if err != nil {
		log.Fatal("Failed to initialize credential vault", zap.Error(err))
	}

	// Provider adapters
	registry, err := providers.NewDefaultRegistry()
	if err != nil {
		log.Fatal("Failed to build adapter registry", zap.Error(err))
	}

	// Metrics
	m := metrics.New(prometheus.DefaultRegisterer)

	// Webhook queue and sync lock, both on redis
	webhookQueue, err := queue.NewRedisQueue(context.Background(), redisClient, cfg.Webhook.QueueStream, cfg.Webhook.QueueGroup, log)
	if err != nil {
		log.Fatal("Failed to initialize webhook queue", zap.Error(err))
	}
	syncLocker := lock.NewRedisLocker(redisClient, "delivery", log)

	// Application services
	tokenSource := deliveryapp.NewTokenSource(credentialVault, registry, log)
	configService := deliveryapp.NewConfigService(credentialVault, configRepo, registry, log)
	syncService := deliveryapp.NewSyncService(
		syncJobRepo, configRepo, entityMappingRepo, menuReader,
		registry, tokenSource, syncLocker, m, log,
	)
	webhookService := deliveryapp.NewWebhookService(
		webhookEventRepo, credentialVault, registry, webhookQueue, m, log,
	)
	pushBreaker := resilience.NewBreaker(pushBreakerThreshold, pushBreakerCooldown)
	coordinator := deliveryapp.NewOrderCoordinator(
		webhookQueue, webhookEventRepo, orderMappingRepo, configRepo,
		orderRepo, registry, tokenSource, pushBreaker, m, log,
	)

	// Start the coordinator: one dequeue loop fanning out to partition-keyed
	// workers, so events for one external order never interleave.
	coordinatorCtx, stopCoordinator := context.WithCancel(context.Background())
	defer stopCoordinator()
	go coordinator.Run(coordinatorCtx, cfg.Webhook.Workers)
	log.Info("Order coordinator started", zap.Int("workers", cfg.Webhook.Workers))

	// JWT service for the admin API. Tokens are minted by the platform's
	// identity service; this process only validates them.
	jwtService := auth.NewJWTService(cfg.JWT)

	// HTTP handlers
	providerConfigHandler := handler.NewProviderConfigHandler(configService)
	syncHandler := handler.NewSyncHandler(syncService)
	webhookHandler := handler.NewWebhookHandler(webhookService)
	deliveryOrderHandler := handler.NewDeliveryOrderHandler(orderMappingRepo, webhookService, coordinator)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack in order: request ID, panic recovery, request logging,
	// security headers, CORS, metrics, body limit, rate limit.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.Prometheus(m))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health and metrics endpoints (outside API versioning)
	engine.GET("/health", healthHandler(db, redisClient))
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Provider webhooks authenticate by signature, not by bearer token
	engine.POST("/api/v1/webhooks/:provider/orders", webhookHandler.ReceiveOrder)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
		},
		SkipPathPrefixes: []string{
			"/api/v1/webhooks",
		},
		Logger:         log,
		TokenBlacklist: auth.NewRedisTokenBlacklistWithClient(redisClient),
	}
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// System routes
	systemHandler := handler.NewSystemHandler()
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	// Delivery domain routes
	deliveryRoutes := router.NewDomainGroup("delivery", "/delivery")
	deliveryRoutes.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "delivery service ready"})
	})

	// Provider configuration
	deliveryRoutes.POST("/providers", providerConfigHandler.Register)
	deliveryRoutes.GET("/providers", providerConfigHandler.List)
	deliveryRoutes.DELETE("/providers/:id", providerConfigHandler.Deactivate)

	// Menu synchronization
	deliveryRoutes.POST("/sync", syncHandler.Start)
	deliveryRoutes.GET("/sync", syncHandler.List)
	deliveryRoutes.GET("/sync/:id", syncHandler.Get)
	deliveryRoutes.POST("/sync/:id/cancel", syncHandler.Cancel)

	// Order mappings, webhook audit trail and status push-back
	deliveryRoutes.POST("/orders/status", deliveryOrderHandler.NotifyStatus)
	deliveryRoutes.GET("/orders/:provider/:external_id", deliveryOrderHandler.Get)
	deliveryRoutes.GET("/orders/:provider/:external_id/events", deliveryOrderHandler.Trail)
	deliveryRoutes.GET("/events/:id", webhookHandler.GetEvent)

	r.Register(systemRoutes).Register(deliveryRoutes)
	r.Setup()

	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown: stop accepting HTTP first, then drain the
	// coordinator so in-flight events finish or go back to the queue.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}
	stopCoordinator()

	log.Info("Server exited gracefully")
}

// healthHandler reports database and redis connectivity
func healthHandler(db *persistence.Database, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		status := http.StatusOK
		dbStatus, redisStatus := "ok", "ok"

		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			status = http.StatusServiceUnavailable
			dbStatus = "error"
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			reqLog.Warn("Redis health check failed", zap.Error(err))
			status = http.StatusServiceUnavailable
			redisStatus = "error"
		}

		overall := "healthy"
		if status != http.StatusOK {
			overall = "unhealthy"
		}
		c.JSON(status, gin.H{
			"status":   overall,
			"time":     time.Now().Format(time.RFC3339),
			"database": dbStatus,
			"redis":    redisStatus,
		})
	}
}
