package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OTapias/alican-teca/cache"
	"github.com/OTapias/alican-teca/database"
	"github.com/OTapias/alican-teca/handlers"
	"github.com/OTapias/alican-teca/kafka"
	"github.com/OTapias/alican-teca/middleware"
	"github.com/OTapias/alican-teca/payments"
	"github.com/OTapias/alican-teca/store"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database. The storefront keeps serving without it: the
	// catalog degrades to the seed and order writes are logged-and-dropped.
	db, err := database.InitDB(logger)
	if err != nil {
		logger.Warn("Database unavailable, serving catalog from seed", zap.Error(err))
		db = nil
	} else {
		defer db.Close()
		if err := database.SeedProducts(db, store.SeedCatalog(), logger); err != nil {
			logger.Error("Failed to seed product catalog", zap.Error(err))
		}
	}

	// Initialize Redis cache (optional)
	redisClient, err := cache.InitRedis(logger)
	if err != nil {
		logger.Warn("Redis unavailable, product cache disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	// Initialize Kafka producer (optional)
	producer, err := kafka.InitProducer(logger)
	if err != nil {
		logger.Warn("Kafka unavailable, order events disabled", zap.Error(err))
		producer = nil
	} else {
		defer producer.Close()
	}

	// Initialize OpenTelemetry
	shutdownTracing, err := middleware.InitTracing("storefront-api")
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	// Stores and payment providers
	productStore := store.NewProductStore(db, logger)
	orderStore := store.NewOrderStore(db, logger)
	reconciler := store.NewReconciler(orderStore, logger)

	providers := payments.NewRegistry(
		payments.NewPayPal(payments.PayPalConfig{
			BaseURL:      getEnv("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com"),
			ClientID:     os.Getenv("PAYPAL_CLIENT_ID"),
			ClientSecret: os.Getenv("PAYPAL_CLIENT_SECRET"),
			WebhookID:    os.Getenv("PAYPAL_WEBHOOK_ID"),
		}, logger),
		payments.NewPayU(payments.PayUConfig{
			APIKey:     os.Getenv("PAYU_API_KEY"),
			MerchantID: os.Getenv("PAYU_MERCHANT_ID"),
		}, logger),
		payments.NewBitPay(payments.BitPayConfig{
			WebhookSecret: os.Getenv("BITPAY_WEBHOOK_SECRET"),
		}, logger),
	)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	// OpenTelemetry middleware must be first to extract trace context
	router.Use(otelgin.Middleware("storefront-api"))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())

	pingHandler := handlers.NewPingHandler(db, logger)
	productHandler := handlers.NewProductHandler(productStore, redisClient, logger)
	orderHandler := handlers.NewOrderHandler(orderStore, producer, logger)
	paymentHandler := handlers.NewPaymentHandler(providers, reconciler, producer, logger)

	// Public surface
	router.GET("/health", handlers.HealthCheck)
	router.GET("/db/ping", pingHandler.DBPing)
	router.GET("/metrics", middleware.PrometheusHandler())
	router.GET("/products", productHandler.GetProducts)
	router.GET("/products/:id", productHandler.GetProduct)
	router.GET("/orders/:id", orderHandler.GetOrder)

	// Payment providers call in unauthenticated; each adapter verifies its
	// own signature scheme.
	router.POST("/payments/paypal/create-order", paymentHandler.CreatePayPalOrder)
	router.POST("/payments/payu/webhook", paymentHandler.WebhookFor("payu"))
	router.POST("/payments/paypal/webhook", paymentHandler.WebhookFor("paypal"))
	router.POST("/payments/bitpay/webhook", paymentHandler.WebhookFor("bitpay"))

	// Administrative surface behind the shared secret
	apiKey := os.Getenv("API_KEY")
	admin := router.Group("/", middleware.APIKeyMiddleware(apiKey, logger))
	admin.POST("/orders", orderHandler.CreateOrder)
	admin.GET("/orders", orderHandler.ListOrders)
	admin.PATCH("/orders/:id", orderHandler.UpdateOrder)

	srv := &http.Server{
		Addr:    ":" + getEnv("PORT", "8000"),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Storefront API started", zap.String("addr", srv.Addr))

	gracefulShutdown(srv, db, redisClient, producer, shutdownTracing, logger)
}

// gracefulShutdown handles SIGINT/SIGTERM and shuts everything down in order.
func gracefulShutdown(
	srv *http.Server,
	db *sql.DB,
	redisClient *redis.Client,
	producer sarama.SyncProducer,
	shutdownTracing func(),
	logger *zap.Logger,
) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown signal received. Exiting...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server forced to shutdown", zap.Error(err))
	} else {
		logger.Info("HTTP server stopped gracefully")
	}

	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database", zap.Error(err))
		}
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Failed to close Redis cache", zap.Error(err))
		}
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("Failed to close Kafka producer", zap.Error(err))
		}
	}

	shutdownTracing()
	logger.Info("Storefront API exited gracefully")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
