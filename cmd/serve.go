package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-svc/checkout"
	"storefront-svc/circuitbreaker"
	"storefront-svc/config"
	"storefront-svc/database"
	"storefront-svc/gateway"
	"storefront-svc/guard"
	"storefront-svc/handlers"
	"storefront-svc/kafka"
	"storefront-svc/middleware"
	"storefront-svc/notify"
	"storefront-svc/store"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

var runMigrations bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()
		return serve(cfg, logger)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&runMigrations, "migrate", true, "apply pending migrations before serving")
}

func serve(cfg *config.Config, logger *zap.Logger) error {
	shutdownTracing := func() {}
	if cfg.TracingEnabled {
		var err error
		if shutdownTracing, err = middleware.InitTracing(cfg.ServiceName, cfg.JaegerEndpoint); err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	db, err := database.InitDB(cfg.Database, logger)
	if err != nil {
		return err
	}
	if runMigrations {
		if err := database.MigrateUp(db, logger); err != nil {
			return err
		}
	}
	st := store.New(db, "postgres")

	var redisClient *redis.Client
	var guardStore guard.Store = guard.NewMemoryStore()
	if cfg.Checkout.GuardBackend == "redis" {
		if redisClient, err = guard.InitRedis(cfg.Redis, logger); err != nil {
			return err
		}
		guardStore = guard.NewRedisStore(redisClient, "checkout")
	}
	g := guard.New(guardStore, cfg.Checkout.RateLimit, cfg.Checkout.RateWindow, cfg.Checkout.DedupWindow)

	var publisher *kafka.Publisher
	if cfg.Kafka.Enabled {
		producer, err := kafka.InitProducer(cfg.Kafka, logger)
		if err != nil {
			return err
		}
		publisher = kafka.NewPublisher(producer, cfg.Kafka.Topic, logger)
	}

	breaker := circuitbreaker.NewCircuitBreaker("razorpay", 5, 30*time.Second,
		circuitbreaker.WithStateChange(func(name string, from, to circuitbreaker.State) {
			middleware.RecordCircuitStateChange(name, to.String())
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}),
	)
	rzp := gateway.NewRazorpay(cfg.Razorpay, breaker, logger)
	if cfg.Razorpay.KeySecret == "" {
		logger.Warn("RAZORPAY_KEY_SECRET is not set, online payments will be refused")
	}

	notifier := notify.NewNotifier(notify.NewMailer(cfg.Mail, logger), cfg.Mail.AdminEmail, logger)

	// A nil *kafka.Publisher must not reach the interfaces below as a non-nil value.
	var events checkout.EventPublisher
	var adminEvents handlers.EventPublisher
	if publisher != nil {
		events, adminEvents = publisher, publisher
	}

	svc := checkout.NewService(st, st, st, rzp, g, events, notifier,
		checkout.Options{TotalTolerance: cfg.Checkout.TotalTolerance, AmountTolerance: cfg.Checkout.AmountTolerance},
		logger,
	)

	router := newRouter(cfg, logger, routes{
		orders:   handlers.NewOrderHandler(svc, st, logger),
		payments: handlers.NewPaymentHandler(svc, rzp, logger),
		admin:    handlers.NewAdminHandler(st, adminEvents, logger),
		support:  handlers.NewSupportHandler(notifier, logger),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Info("Storefront service started", zap.String("addr", cfg.HTTPAddr))

	return gracefulShutdown(srv, errCh, db, redisClient, publisher, notifier, shutdownTracing, logger)
}

type routes struct {
	orders   *handlers.OrderHandler
	payments *handlers.PaymentHandler
	admin    *handlers.AdminHandler
	support  *handlers.SupportHandler
}

func newRouter(cfg *config.Config, logger *zap.Logger, r routes) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", middleware.PrometheusHandler())

	api := router.Group("/api")
	{
		api.POST("/orders", r.orders.CreateOrder)
		api.GET("/orders", r.orders.ListOrders)
		api.POST("/payments/razorpay/order", r.payments.CreatePaymentOrder)
		api.POST("/support", r.support.Submit)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminAuth([]byte(cfg.AdminJWTSecret)))
	{
		admin.GET("/orders", r.admin.ListOrders)
		admin.PATCH("/orders/:id/status", r.admin.UpdateOrderStatus)
		admin.GET("/failed-orders", r.admin.ListFailedOrders)
		admin.PATCH("/failed-orders/:id", r.admin.ResolveFailedOrder)
	}

	return router
}

// gracefulShutdown waits for SIGINT/SIGTERM or a listener failure, then drains the server,
// pending emails and the remaining connections.
func gracefulShutdown(
	srv *http.Server,
	errCh <-chan error,
	db *sql.DB,
	redisClient *redis.Client,
	publisher *kafka.Publisher,
	notifier *notify.Notifier,
	shutdownTracing func(),
	logger *zap.Logger,
) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case <-quit:
		logger.Info("Shutdown signal received. Exiting...")
	case serveErr = <-errCh:
		logger.Error("HTTP server failed", zap.Error(serveErr))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server forced to shutdown", zap.Error(err))
	} else {
		logger.Info("HTTP server stopped gracefully")
	}

	if err := notifier.Wait(ctx); err != nil {
		logger.Warn("Pending emails dropped", zap.Error(err))
	}

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close Kafka producer", zap.Error(err))
		}
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Failed to close Redis", zap.Error(err))
		}
	}

	if err := db.Close(); err != nil {
		logger.Error("Failed to close database", zap.Error(err))
	} else {
		logger.Info("Database connection closed gracefully")
	}

	shutdownTracing()
	logger.Info("Server exited")
	return serveErr
}
