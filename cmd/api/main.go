package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fulfillment-platform/portal/internal/api"
	"github.com/fulfillment-platform/portal/internal/api/handlers"
	"github.com/fulfillment-platform/portal/internal/application"
	"github.com/fulfillment-platform/portal/internal/infrastructure/events"
	infraMongo "github.com/fulfillment-platform/portal/internal/infrastructure/mongodb"
	"github.com/fulfillment-platform/portal/internal/infrastructure/shopify"
	"github.com/fulfillment-platform/portal/pkg/cloudevents"
	"github.com/fulfillment-platform/portal/pkg/idempotency"
	"github.com/fulfillment-platform/portal/pkg/kafka"
	"github.com/fulfillment-platform/portal/pkg/logging"
	"github.com/fulfillment-platform/portal/pkg/metrics"
	"github.com/fulfillment-platform/portal/pkg/mongodb"
	"github.com/fulfillment-platform/portal/pkg/outbox"
	outboxMongo "github.com/fulfillment-platform/portal/pkg/outbox/mongodb"
	"github.com/fulfillment-platform/portal/pkg/ratelimit"
	"github.com/fulfillment-platform/portal/pkg/tracing"
)

const serviceName = "portal-api"

func main() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	if err := run(context.Background(), quit); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, quit <-chan os.Signal) error {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting portal API")

	config := loadConfig()

	// OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
	}

	// Prometheus metrics
	m := metrics.New(metrics.DefaultConfig(serviceName))

	// MongoDB
	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		return err
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	db := mongoClient.Database()

	// Repositories
	outboxRepo := outboxMongo.NewOutboxRepository(db)
	ledgerRepo := infraMongo.NewLedgerRepository(mongoClient, outboxRepo)
	skuRepo := infraMongo.NewSKURepository(mongoClient)
	aliasRepo := infraMongo.NewAliasRepository(mongoClient)
	asnRepo := infraMongo.NewASNRepository(mongoClient)
	discrepancyRepo := infraMongo.NewDiscrepancyRepository(mongoClient)
	returnRepo := infraMongo.NewReturnRepository(mongoClient)
	connectionRepo := infraMongo.NewConnectionRepository(mongoClient)
	photoRepo := infraMongo.NewPhotoRepository(mongoClient)
	processedRepo := idempotency.NewMongoRepository(db)
	rateStore := ratelimit.NewMongoStore(db)

	ensureIndexes(ctx, logger, map[string]interface {
		EnsureIndexes(context.Context) error
	}{
		"ledger":       ledgerRepo,
		"skus":         skuRepo,
		"aliases":      aliasRepo,
		"asns":         asnRepo,
		"discrepancies": discrepancyRepo,
		"returns":      returnRepo,
		"connections":  connectionRepo,
		"photos":       photoRepo,
		"idempotency":  processedRepo,
		"ratelimit":    rateStore,
	})

	// Kafka producer feeding the outbox publisher
	kafkaProducer := kafka.NewProducer(config.Kafka)
	defer kafkaProducer.Close()

	outboxPublisher := outbox.NewPublisher(outboxRepo, kafkaProducer, logger, m, outbox.DefaultPublisherConfig())
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
	} else {
		defer outboxPublisher.Stop()
	}

	// Event plumbing
	factory := cloudevents.NewEventFactory("portal/" + serviceName)
	publisher := events.NewOutboxPublisher(outboxRepo, factory)

	// Platform gateway
	shopifyClient := shopify.NewClient(config.Shopify, logger)
	payloadValidator, err := shopify.NewPayloadValidator()
	if err != nil {
		logger.WithError(err).Error("Failed to compile webhook schemas")
		return err
	}

	// Application services
	inventoryService := application.NewInventoryService(ledgerRepo, factory, logger, m)
	resolver := application.NewAliasResolver(aliasRepo, skuRepo, logger, m)
	skuService := application.NewSKUService(skuRepo, ledgerRepo, asnRepo, aliasRepo, logger)
	receivingService := application.NewReceivingService(asnRepo, skuRepo, discrepancyRepo, photoRepo, inventoryService, publisher, logger, m)
	discrepancyService := application.NewDiscrepancyService(discrepancyRepo, publisher, logger)
	returnsService := application.NewReturnsService(returnRepo, discrepancyRepo, photoRepo, resolver, inventoryService, publisher, logger, m)
	syncService := application.NewSyncService(connectionRepo, processedRepo, aliasRepo, skuRepo, ledgerRepo, outboxRepo,
		shopifyClient, factory, publisher, logger, m)

	// Rate limits: webhooks per shop domain, OAuth callback per caller IP
	webhookLimiter := ratelimit.NewLimiter(rateStore, ratelimit.DefaultConfig(), logger)
	oauthLimiter := ratelimit.NewLimiter(rateStore, ratelimit.Config{MaxRequests: 30, Window: time.Minute}, logger)

	router := api.NewRouter(&api.Config{
		ServiceName:    serviceName,
		Logger:         logger,
		Metrics:        m,
		WebhookLimiter: webhookLimiter,
		OAuthLimiter:   oauthLimiter,
		Readiness: func() error {
			return mongoClient.HealthCheck(ctx)
		},
	}, &api.Handlers{
		Inventory:     handlers.NewInventoryHandler(inventoryService, logger),
		SKUs:          handlers.NewSKUHandler(skuService, resolver, logger),
		ASNs:          handlers.NewASNHandler(receivingService, logger),
		Discrepancies: handlers.NewDiscrepancyHandler(discrepancyService, logger),
		Returns:       handlers.NewReturnsHandler(returnsService, logger),
		Webhooks:      handlers.NewWebhookHandler(syncService, returnsService, payloadValidator, config.Shopify.APISecret, logger),
		Sync:          handlers.NewSyncHandler(syncService, config.DashboardURL, logger),
	})

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("Server started", "addr", config.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()

	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
	return nil
}

// ensureIndexes applies index definitions at startup; a failure is logged
// but does not prevent serving
func ensureIndexes(ctx context.Context, logger *logging.Logger, repos map[string]interface {
	EnsureIndexes(context.Context) error
}) {
	for name, repo := range repos {
		if err := repo.EnsureIndexes(ctx); err != nil {
			logger.WithError(err).Warn("Failed to ensure indexes", "repository", name)
		}
	}
}

// Config holds application configuration
type Config struct {
	ServerAddr   string
	DashboardURL string
	MongoDB      *mongodb.Config
	Kafka        *kafka.Config
	Shopify      *shopify.Config
}

func loadConfig() *Config {
	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	kafkaConfig.ClientID = serviceName

	shopifyConfig := shopify.DefaultConfig()
	shopifyConfig.APIKey = getEnv("SHOPIFY_API_KEY", "")
	shopifyConfig.APISecret = getEnv("SHOPIFY_API_SECRET", "")
	shopifyConfig.RedirectURI = getEnv("SHOPIFY_REDIRECT_URI", "http://localhost:8080/oauth/callback")
	shopifyConfig.LocationID = getEnv("SHOPIFY_LOCATION_ID", "")

	return &Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":8080"),
		DashboardURL: getEnv("DASHBOARD_URL", "http://localhost:3000/dashboard"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "portal_db"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka:   kafkaConfig,
		Shopify: shopifyConfig,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
