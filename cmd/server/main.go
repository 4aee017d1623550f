package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yourorg/symbol-directory/internal/config"
	"github.com/yourorg/symbol-directory/internal/handler"
	"github.com/yourorg/symbol-directory/internal/middleware"
	"github.com/yourorg/symbol-directory/internal/pool"
	"github.com/yourorg/symbol-directory/internal/pubsub"
	"github.com/yourorg/symbol-directory/internal/repository"
	"github.com/yourorg/symbol-directory/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set up logger
	logger, err := createLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Connect to the backend. The service cannot run without it.
	redisClient, err := connectToRedis(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis", zap.String("url", cfg.Redis.URL))

	// Initialize Kafka writer (if enabled)
	var kafkaWriter *kafka.Writer
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		kafkaWriter = &kafka.Writer{
			Addr:     kafka.TCP(cfg.Kafka.Brokers...),
			Topic:    cfg.Kafka.Topic,
			Balancer: &kafka.LeastBytes{},
		}
		logger.Info("Initialized Kafka writer", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	// Worker pool for CPU-bound shard filtering, sized to the host
	workers := pool.New(0)

	// Create repositories
	userRepo := repository.NewUserRepository(redisClient, logger)
	symbolRepo := repository.NewSymbolRepository(redisClient, logger)

	// Create services
	publisher := pubsub.NewPublisher(redisClient, kafkaWriter, logger)
	authService := service.NewAuthService(userRepo, cfg, logger)
	symbolService := service.NewSymbolService(symbolRepo, publisher, logger)
	searchService := service.NewSearchService(symbolRepo, workers, logger)

	// Bootstrap the admin account. A missing admin password with no existing
	// account is a configuration error, so fail fast.
	if err := authService.EnsureAdminUser(context.Background(), cfg.Auth.AdminPassword); err != nil {
		logger.Fatal("Failed to ensure admin user", zap.Error(err))
	}

	// Create HTTP server
	router := setupRouter(cfg, authService, symbolService, searchService, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	// Drain in-flight filtering tasks before the backend connection closes
	workers.Close()

	if err := publisher.Close(); err != nil {
		logger.Error("Failed to close publisher", zap.Error(err))
	}

	logger.Info("Server exited properly")
}

func createLogger(level string) (*zap.Logger, error) {
	// Parse log level
	var zapLevel zap.AtomicLevel
	switch level {
	case "debug":
		zapLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	// Create logger config
	config := zap.Config{
		Level:            zapLevel,
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}

func connectToRedis(redisConfig config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisConfig.URL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return client, nil
}

func setupRouter(
	cfg *config.Config,
	authService *service.AuthService,
	symbolService *service.SymbolService,
	searchService *service.SearchService,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()

	// Use middlewares
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS())
	router.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	authHandler := handler.NewAuthHandler(authService, logger)
	symbolHandler := handler.NewSymbolHandler(symbolService, searchService, logger)

	// ==================== AUTH ROUTES ====================
	router.POST("/token", authHandler.Token)
	router.POST("/refresh", authHandler.Refresh)

	protected := router.Group("")
	protected.Use(middleware.AuthMiddleware(authService, logger))
	protected.POST("/logout", authHandler.Logout)
	protected.GET("/users/me/", authHandler.Me)

	// ==================== SYMBOL ROUTES ====================
	router.GET("/get_ingestion_symbols/", symbolHandler.GetWorklist)
	router.POST("/set_ingestion_symbols/", symbolHandler.SetWorklist)
	router.POST("/add_ingestion_symbol/", symbolHandler.AddSymbol)
	router.POST("/remove_ingestion_symbol/", symbolHandler.RemoveSymbol)
	router.GET("/search_symbols/", symbolHandler.Search)

	// ==================== CONFIG ROUTES ====================
	router.GET("/get_system_config/", symbolHandler.GetConfig)
	router.POST("/set_system_config/", symbolHandler.SetConfig)

	return router
}
