package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/shopswift/storefront/common/auth"
	apperrors "github.com/shopswift/storefront/common/errors"
	"github.com/shopswift/storefront/common/logger"
	commonmw "github.com/shopswift/storefront/common/middleware"
	"github.com/shopswift/storefront/config"
	"github.com/shopswift/storefront/controllers"
	"github.com/shopswift/storefront/database"
	"github.com/shopswift/storefront/events"
	"github.com/shopswift/storefront/middleware"
	"github.com/shopswift/storefront/models"
	awspkg "github.com/shopswift/storefront/pkg/aws"
	"github.com/shopswift/storefront/repository"
	"github.com/shopswift/storefront/routes"
	"github.com/shopswift/storefront/services"
)

const serviceName = "storefront-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- AWS setup (only when a component needs it) ---
	var awsCfg sdkaws.Config
	needsAWS := cfg.CloudWatchEnabled || cfg.EventSink == config.EventSinkSNS || cfg.EventSink == config.EventSinkSQS
	if needsAWS {
		awsCfg, err = awspkg.LoadAWSConfig(ctx)
		if err != nil {
			log.Fatalf("failed to load AWS config: %v", err)
		}
	}

	// --- Logger ---
	var logSink io.Writer
	if cfg.CloudWatchEnabled {
		cwLogs, err := awspkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.CloudWatchLogGroup, serviceName)
		if err != nil {
			log.Printf("CloudWatch Logs unavailable, logging to stdout only: %v", err)
		} else {
			logSink = cwLogs
		}
	}
	zapLogger, err := logger.New(cfg.Env, logSink)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	var metricsClient *awspkg.MetricsClient
	if cfg.CloudWatchEnabled {
		metricsClient = awspkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, true)
	}

	// --- Datastores ---
	db, err := database.ConnectPostgres(ctx, cfg.PostgresDSN(), zapLogger,
		&models.Product{}, &models.Coupon{}, &models.Order{}, &models.OrderItem{}, &models.Payment{})
	if err != nil {
		zapLogger.Fatal("DB connection failed", zap.Error(err))
	}
	rdb, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("Redis connection failed", zap.Error(err))
	}

	// --- Events ---
	emitter := events.NewEmitter(newEventPublisher(cfg, awsCfg, zapLogger), zapLogger,
		events.WithDropHook(func(ev events.Event, _ error) {
			if metricsClient.IsEnabled() {
				dims := map[string]string{"Service": serviceName, "EventType": ev.Type}
				mctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = metricsClient.RecordCount(mctx, awspkg.MetricEventsDropped, dims)
			}
		}),
	)

	// --- Dependency injection ---
	var svcOpts []services.Option
	if metricsClient.IsEnabled() {
		svcOpts = append(svcOpts, services.WithMetrics(metricsClient))
	}

	productRepo := repository.NewGormProductRepository(db)
	couponRepo := repository.NewGormCouponRepository(db)
	orderRepo := repository.NewGormOrderRepository(db)
	paymentRepo := repository.NewGormPaymentRepository(db)
	cartRepo := repository.NewRedisCartRepository(rdb, cfg.CartTTL)
	uow := repository.NewGormUnitOfWork(db)

	couponService := services.NewCouponService(couponRepo, zapLogger, svcOpts...)
	cartService := services.NewCartService(cartRepo, productRepo, couponService, zapLogger)
	orderService := services.NewOrderService(cartRepo, productRepo, orderRepo, uow, couponService, emitter, zapLogger, svcOpts...)
	paymentService := services.NewPaymentService(paymentRepo, orderRepo, uow, emitter, zapLogger, svcOpts...)

	// --- HTTP router ---
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	controllers.RegisterValidators()

	limiter := commonmw.NewRateLimiter(rate.Every(time.Minute/time.Duration(max(cfg.RateLimitPerMinute, 1))), cfg.RateLimitBurst, 10*time.Minute)
	go limiter.Cleanup(ctx)

	r.Use(
		gin.Recovery(),
		logger.RequestID(),
		commonmw.RequestLogger(zapLogger),
		commonmw.MetricsMiddleware(metricsClient, serviceName),
		apperrors.ErrorMiddleware(zapLogger),
		commonmw.SecurityHeaders(),
		commonmw.CORSMiddleware(cfg.AllowedOrigins),
		commonmw.RateLimitMiddleware(limiter),
		commonmw.Timeout(cfg.RequestTimeout),
	)

	routes.RegisterRoutes(r, routes.Controllers{
		Cart:    controllers.NewCartController(cartService),
		Order:   controllers.NewOrderController(orderService),
		Payment: controllers.NewPaymentController(paymentService),
		Coupon:  controllers.NewCouponController(couponService),
		Health: controllers.NewHealthController(serviceName, map[string]controllers.Check{
			"postgres": func(ctx context.Context) error { return database.Ping(ctx, db) },
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}),
	}, middleware.AuthMiddleware(auth.NewTokenVerifier(cfg.JWTSecret), cfg.TrustGatewayHeaders))

	// --- HTTP server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zapLogger.Info("Storefront API started", zap.String("port", cfg.Port), zap.String("event_sink", cfg.EventSink))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	<-ctx.Done()
	zapLogger.Info("Initiating graceful shutdown...")
	shutdown(srv, emitter, rdb, db, zapLogger)
	zapLogger.Info("Storefront API stopped gracefully")
}

// newEventPublisher builds the configured sink behind a circuit breaker.
func newEventPublisher(cfg *config.Config, awsCfg sdkaws.Config, logger *zap.Logger) events.Publisher {
	var sink events.Publisher
	switch cfg.EventSink {
	case config.EventSinkSNS:
		sink = events.NewSNSPublisher(awspkg.NewSNSClient(awsCfg), cfg.OrderSNSTopicARN)
	case config.EventSinkSQS:
		sink = events.NewSQSPublisher(awspkg.NewSQSClient(awsCfg), cfg.OrderQueueURL)
	case config.EventSinkKafka:
		sink = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
	default:
		return events.NewLogPublisher(logger)
	}
	return events.NewBreakerPublisher(cfg.EventSink+"-events", sink, logger)
}

func shutdown(srv *http.Server, emitter *events.Emitter, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	// In-flight requests are done; flush their events before closing sinks.
	if err := emitter.Close(); err != nil {
		logger.Error("Event publisher close error", zap.Error(err))
	}
	if err := rdb.Close(); err != nil {
		logger.Error("Redis close error", zap.Error(err))
	}
	if err := database.Close(db); err != nil {
		logger.Error("Database close error", zap.Error(err))
	}
}
