package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	aws_pkg "github.com/shopcart/storefront/pkg/aws"
	ddb "github.com/shopcart/storefront/pkg/dynamodb"
	"github.com/shopcart/storefront/services/checkout-service/controllers"
	"github.com/shopcart/storefront/services/checkout-service/database"
	"github.com/shopcart/storefront/services/checkout-service/events"
	checkoutmw "github.com/shopcart/storefront/services/checkout-service/middleware"
	"github.com/shopcart/storefront/services/checkout-service/models"
	"github.com/shopcart/storefront/services/checkout-service/providers"
	"github.com/shopcart/storefront/services/checkout-service/repository"
	"github.com/shopcart/storefront/services/checkout-service/routes"
	servicepkg "github.com/shopcart/storefront/services/checkout-service/services"
	"github.com/shopcart/storefront/services/common/auth"
	apperrors "github.com/shopcart/storefront/services/common/errors"
	applogger "github.com/shopcart/storefront/services/common/logger"
	"github.com/shopcart/storefront/services/common/middleware"
)

const serviceName = "checkout-service"

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// AWS clients
	awsCfg, awsErr := aws_pkg.LoadAWSConfig(context.Background())

	logger := initLogger(cfg, awsCfg, awsErr)
	defer logger.Sync() //nolint:errcheck

	if awsErr != nil {
		logger.Warn("AWS config unavailable, SNS/SQS/CloudWatch disabled", zap.Error(awsErr))
	}

	var metrics *aws_pkg.MetricsClient
	if awsErr == nil {
		metrics = aws_pkg.NewMetricsClient(awsCfg, cfg.MetricsNamespace, cfg.MetricsEnabled)
	}

	orderRepo, addressRepo, db := initStores(cfg, awsCfg, awsErr, logger)
	if db != nil {
		defer database.Close(db) //nolint:errcheck
	}

	sessions := initSessionStore(cfg, logger)
	publisher, closePublisher := initPublisher(cfg, awsCfg, awsErr, logger)
	defer closePublisher()

	// Provider and DI chain
	paymentProvider := providers.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret, nil)
	checkoutService := servicepkg.NewCheckoutService(paymentProvider, sessions, cfg.StripePublishableKey, metrics, logger)
	orderService := servicepkg.NewOrderService(orderRepo, paymentProvider, publisher, cfg.EventTopic(), metrics, logger)
	shippingService := servicepkg.NewShippingService(orderRepo, metrics, logger)
	addressService := servicepkg.NewAddressService(addressRepo, logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.ShippingSQSQueueURL != "" && awsErr == nil {
		consumer := servicepkg.NewOrderEventConsumer(shippingService, metrics, logger)
		sqsConsumer := aws_pkg.NewSQSConsumer(awsCfg, cfg.ShippingSQSQueueURL, logger)
		go func() {
			if err := consumer.Run(ctx, sqsConsumer); err != nil && ctx.Err() == nil {
				logger.Error("Order event consumer stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Info("SHIPPING_SQS_QUEUE_URL not set, shipping starts only via the API")
	}

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, 10*time.Minute)
	go limiter.RunSweeper(ctx.Done())

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		gin.Recovery(),
		applogger.RequestID(),
		middleware.RequestLogger(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.CORSAllowedOrigins),
		middleware.RateLimitMiddleware(limiter),
		middleware.MetricsMiddleware(metrics, serviceName),
		apperrors.ErrorMiddleware(),
	)

	// 30-second request timeout
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})

	routes.RegisterCheckoutRoutes(r, routes.Controllers{
		Checkout: controllers.NewCheckoutController(checkoutService),
		Orders:   controllers.NewOrderController(orderService),
		Shipping: controllers.NewShippingController(shippingService),
		Address:  controllers.NewAddressController(addressService),
		Webhook:  controllers.NewWebhookController(orderService),
	}, checkoutmw.AuthMiddleware(auth.NewTokenParser(cfg.JWTSecret), logger))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	logger.Info("Checkout service started",
		zap.String("port", cfg.Port),
		zap.String("order_store", cfg.OrderStore),
		zap.String("event_bus", cfg.EventBus),
	)
	<-quit
	logger.Info("Shutting down checkout service...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exited cleanly")
}

// initLogger builds the process logger, tee'd into CloudWatch Logs when a log group is configured.
func initLogger(cfg *Config, awsCfg aws.Config, awsErr error) *zap.Logger {
	if cfg.CloudWatchLogGroup != "" && awsErr == nil {
		cw, err := aws_pkg.NewCloudWatchLogsClient(context.Background(), awsCfg, serviceName, cfg.CloudWatchLogGroup)
		if err == nil {
			if l, err := applogger.InitializeWithWriter(cfg.Env, cw); err == nil {
				return l
			}
		} else {
			log.Printf("CloudWatch logs unavailable: %v", err)
		}
	}
	l, err := applogger.Initialize(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	return l
}

func initStores(cfg *Config, awsCfg aws.Config, awsErr error, logger *zap.Logger) (repository.OrderRepository, repository.AddressRepository, *gorm.DB) {
	if cfg.OrderStore == OrderStoreDynamoDB {
		if awsErr != nil {
			logger.Fatal("ORDER_STORE=dynamodb requires AWS config", zap.Error(awsErr))
		}
		client := ddb.NewClientFromConfig(awsCfg)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		for _, spec := range repository.TableSpecs(cfg.DynamoOrderTable, cfg.DynamoAddressTable) {
			if err := ddb.EnsureTable(ctx, client, spec); err != nil {
				logger.Fatal("Failed to ensure DynamoDB table", zap.String("table", spec.Name), zap.Error(err))
			}
		}
		logger.Info("Using DynamoDB order store", zap.String("table", cfg.DynamoOrderTable))
		return repository.NewDynamoOrderRepository(client, cfg.DynamoOrderTable),
			repository.NewDynamoAddressRepository(client, cfg.DynamoAddressTable),
			nil
	}

	db, err := database.ConnectPostgres(database.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPassword,
		DBName:   cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSLMode,
		TimeZone: cfg.PostgresTimeZone,
	}, logger, &models.Order{}, &models.Address{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	return repository.NewGormOrderRepository(db), repository.NewGormAddressRepository(db), db
}

func initSessionStore(cfg *Config, logger *zap.Logger) repository.SessionStore {
	if cfg.RedisURL == "" {
		logger.Warn("REDIS_URL not set, payment session replay is per-process only")
		return repository.NewMemorySessionStore(repository.SessionClaimTTL, repository.SessionTTL)
	}
	client, err := database.NewRedisClient(context.Background(), cfg.RedisURL)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	return repository.NewRedisSessionStore(client, repository.SessionClaimTTL, repository.SessionTTL)
}

func initPublisher(cfg *Config, awsCfg aws.Config, awsErr error, logger *zap.Logger) (events.Publisher, func()) {
	switch {
	case cfg.EventBus == EventBusKafka:
		p := events.NewKafkaPublisher(cfg.KafkaBrokers, logger)
		return p, func() { _ = p.Close() }
	case awsErr == nil && cfg.OrderSNSTopicARN != "":
		sns := aws_pkg.NewSNSClient(awsCfg)
		sns.EventType = events.EventTypeOf
		return sns, func() {}
	default:
		logger.Warn("No event bus configured, order events are dropped")
		return events.NopPublisher{}, func() {}
	}
}
