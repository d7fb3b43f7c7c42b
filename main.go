package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // Import pprof for profiling
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/basepark/smartpark/internal/handler"
	authmw "github.com/basepark/smartpark/internal/middleware"
	"github.com/basepark/smartpark/internal/metrics"
	"github.com/basepark/smartpark/internal/repository"
	"github.com/basepark/smartpark/internal/service"
	"github.com/basepark/smartpark/internal/worker"
	"github.com/basepark/smartpark/pkg/config"
	"github.com/basepark/smartpark/pkg/database"
	"github.com/basepark/smartpark/pkg/logger"
	"github.com/basepark/smartpark/pkg/middleware"
	pkgredis "github.com/basepark/smartpark/pkg/redis"
	"github.com/basepark/smartpark/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting smartpark...")

	ctx := context.Background()

	// Initialize tracing
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	}); err != nil {
		appLog.Warn(fmt.Sprintf("Telemetry init failed, tracing disabled: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	// Initialize metrics instruments
	if err := metrics.Init(); err != nil {
		appLog.Warn(fmt.Sprintf("Metrics init failed: %v", err))
	}

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   2 * time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()
	appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))

	// Initialize Redis connection
	redisCfg := &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		MinIdleConns:  cfg.Redis.MinIdleConns,
		DialTimeout:   cfg.Redis.DialTimeout,
		ReadTimeout:   cfg.Redis.ReadTimeout,
		WriteTimeout:  cfg.Redis.WriteTimeout,
		MaxRetries:    3,
		RetryInterval: time.Second,
	}
	redisClient, err := pkgredis.NewClient(ctx, redisCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Redis connection failed: %v", err))
	}
	defer redisClient.Close()
	appLog.Info("Redis connected")

	// Initialize Kafka event publisher
	var eventPublisher service.EventPublisher
	if cfg.Kafka.Enabled {
		eventPublisher, err = service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.Topic,
			ServiceName: cfg.App.Name,
			ClientID:    cfg.Kafka.ClientID,
		})
		if err != nil {
			appLog.Warn(fmt.Sprintf("Kafka connection failed, using no-op publisher: %v", err))
			eventPublisher = service.NewNoOpEventPublisher()
		} else {
			appLog.Info("Kafka event publisher connected")
		}
	} else {
		eventPublisher = service.NewNoOpEventPublisher()
	}

	// Initialize repositories
	spotRepo := repository.NewPostgresSpotRepository(db.Pool())
	resRepo := repository.NewPostgresReservationRepository(db.Pool())
	queueRepo := repository.NewPostgresQueueRepository(db.Pool())
	detectionRepo := repository.NewPostgresDetectionRepository(db.Pool())
	settingsRepo := repository.NewPostgresSettingsRepository(db.Pool())
	userRepo := repository.NewPostgresUserRepository(db.Pool())

	// Initialize notifier; without a webhook URL notifications go to the log
	var notifier service.Notifier
	if cfg.Notifier.WebhookURL != "" {
		notifier, err = service.NewWebhookNotifier(&service.WebhookNotifierConfig{
			BaseURL:    cfg.Notifier.WebhookURL,
			APIKey:     cfg.Notifier.APIKey,
			Timeout:    cfg.Notifier.Timeout,
			MaxRetries: cfg.Notifier.MaxRetries,
		})
		if err != nil {
			appLog.Warn(fmt.Sprintf("Webhook notifier init failed, using log notifier: %v", err))
			notifier = service.NewLogNotifier(appLog)
		}
	} else {
		notifier = service.NewLogNotifier(appLog)
	}

	// Initialize services
	queueSvc := service.NewQueueService(queueRepo, spotRepo, resRepo, notifier, eventPublisher)
	parkingSvc := service.NewParkingService(spotRepo, resRepo, queueRepo, detectionRepo, settingsRepo, notifier, eventPublisher, queueSvc)
	arbitratorSvc := service.NewArbitratorService(spotRepo, resRepo, detectionRepo, settingsRepo, eventPublisher)
	sweeperSvc := service.NewSweeperService(spotRepo, resRepo, queueSvc, eventPublisher, 100)
	settingsSvc := service.NewSettingsService(settingsRepo)
	authSvc, err := service.NewAuthService(userRepo, &service.AuthConfig{
		JWTSecret: cfg.JWT.Secret,
		TokenTTL:  cfg.JWT.TokenTTL,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Auth service init failed: %v", err))
	}

	// Start background workers
	sweeperWorker := worker.NewSweeperWorker(sweeperSvc, &worker.SweeperWorkerConfig{
		SweepInterval: cfg.Sweeper.Interval,
	})
	if err := sweeperWorker.Start(ctx); err != nil {
		appLog.Fatal(fmt.Sprintf("Sweeper worker start failed: %v", err))
	}
	defer sweeperWorker.Stop()

	detectionWorker := worker.NewDetectionWorker(arbitratorSvc, &worker.DetectionWorkerConfig{
		QueueSize: cfg.Detection.QueueSize,
		Cooldown:  cfg.Detection.Cooldown,
	})
	if err := detectionWorker.Start(ctx); err != nil {
		appLog.Fatal(fmt.Sprintf("Detection worker start failed: %v", err))
	}
	defer detectionWorker.Stop()

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(db, redisClient)
	authHandler := handler.NewAuthHandler(authSvc)
	parkingHandler := handler.NewParkingHandler(parkingSvc)
	detectionHandler := handler.NewDetectionHandler(arbitratorSvc, detectionWorker)
	queueHandler := handler.NewQueueHandler(queueSvc)
	adminHandler := handler.NewAdminHandler(parkingSvc, settingsSvc, sweeperSvc)

	// Setup Gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(telemetry.TracingMiddleware(cfg.App.Name))

	// Health check endpoints
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// Configure idempotency middleware for write operations
	idempotencyConfig := middleware.DefaultIdempotencyConfig(redisClient)
	idempotencyConfig.SkipPaths = []string{"/health", "/ready"}

	// API routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/login", authHandler.Login)

		v1.GET("/spots", parkingHandler.GetSpots)

		v1.GET("/reservations", parkingHandler.ListReservations)
		v1.POST("/reservations", middleware.IdempotencyMiddleware(idempotencyConfig), parkingHandler.CreateReservation)
		v1.POST("/reservations/walkin", middleware.IdempotencyMiddleware(idempotencyConfig), parkingHandler.CreateWalkIn)

		v1.GET("/queue", queueHandler.List)
		v1.POST("/queue", middleware.IdempotencyMiddleware(idempotencyConfig), queueHandler.Join)

		v1.POST("/detections", middleware.IdempotencyMiddleware(idempotencyConfig), detectionHandler.ProcessDetection)
		v1.POST("/detections/stream", detectionHandler.StreamDetection)
		v1.GET("/detections/recent", detectionHandler.RecentDetections)

		admin := v1.Group("/admin")
		admin.Use(authmw.AuthRequired(authSvc), authmw.RequireRole("admin"))
		{
			admin.GET("/settings", adminHandler.GetSettings)
			admin.PUT("/settings", adminHandler.UpdateSettings)
			admin.POST("/sweep", adminHandler.Sweep)
			admin.PUT("/spots/:id", adminHandler.OverrideSpot)
			admin.POST("/spots/reset", adminHandler.ResetSpots)
			admin.POST("/factory-reset", adminHandler.FactoryReset)
		}
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("smartpark listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// Start pprof server on separate port for profiling
	if cfg.IsDevelopment() {
		go func() {
			pprofAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port+1000)
			appLog.Info(fmt.Sprintf("pprof server listening on %s", pprofAddr))
			if err := http.ListenAndServe(pprofAddr, nil); err != nil {
				appLog.Error(fmt.Sprintf("pprof server error: %v", err))
			}
		}()
	}

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	appLog.Info("Server exited gracefully")
}
