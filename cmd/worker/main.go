package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fulfillment-platform/portal/internal/application"
	"github.com/fulfillment-platform/portal/internal/infrastructure/events"
	infraMongo "github.com/fulfillment-platform/portal/internal/infrastructure/mongodb"
	"github.com/fulfillment-platform/portal/internal/infrastructure/shopify"
	"github.com/fulfillment-platform/portal/internal/infrastructure/storage"
	"github.com/fulfillment-platform/portal/internal/jobs"
	"github.com/fulfillment-platform/portal/pkg/cloudevents"
	"github.com/fulfillment-platform/portal/pkg/idempotency"
	"github.com/fulfillment-platform/portal/pkg/kafka"
	"github.com/fulfillment-platform/portal/pkg/logging"
	"github.com/fulfillment-platform/portal/pkg/metrics"
	"github.com/fulfillment-platform/portal/pkg/mongodb"
	outboxMongo "github.com/fulfillment-platform/portal/pkg/outbox/mongodb"
	"github.com/fulfillment-platform/portal/pkg/resilience"
	"github.com/fulfillment-platform/portal/pkg/tracing"
)

const serviceName = "portal-worker"

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

	logger.Info("Starting portal worker")

	config := loadConfig()

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

	m := metrics.New(metrics.DefaultConfig(serviceName))

	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		return err
	}
	defer mongoClient.Close(ctx)

	db := mongoClient.Database()

	outboxRepo := outboxMongo.NewOutboxRepository(db)
	ledgerRepo := infraMongo.NewLedgerRepository(mongoClient, outboxRepo)
	skuRepo := infraMongo.NewSKURepository(mongoClient)
	aliasRepo := infraMongo.NewAliasRepository(mongoClient)
	connectionRepo := infraMongo.NewConnectionRepository(mongoClient)
	photoRepo := infraMongo.NewPhotoRepository(mongoClient)
	processedRepo := idempotency.NewMongoRepository(db)

	factory := cloudevents.NewEventFactory("portal/" + serviceName)
	publisher := events.NewOutboxPublisher(outboxRepo, factory)

	shopifyClient := shopify.NewClient(config.Shopify, logger)

	syncService := application.NewSyncService(connectionRepo, processedRepo, aliasRepo, skuRepo, ledgerRepo, outboxRepo,
		shopifyClient, factory, publisher, logger, m)

	// Retention sweeps
	photoStorage := storage.NewFilesystemStorage(config.PhotoDir, logger)
	sweeper := jobs.NewSweeper(jobs.DefaultSweeperConfig(), photoRepo, photoStorage, syncService, logger)
	if err := sweeper.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start retention sweeper")
	} else {
		defer sweeper.Stop()
	}

	// Push requests carry only SKU identity; the worker resolves the current
	// sellable quantity at push time. Transient platform failures retry with
	// backoff; the message is redelivered if all attempts fail.
	retryConfig := resilience.DefaultRetryConfig()
	retryConfig.RetryableErrors = func(err error) bool {
		return err != nil
	}

	consumer := kafka.NewConsumer(config.Kafka, logger.Logger)
	consumer.Subscribe(kafka.Topics.InventoryEvents, cloudevents.InventoryPushRequested,
		func(ctx context.Context, event *cloudevents.PortalCloudEvent) error {
			data, err := decodePushRequest(event)
			if err != nil {
				logger.WithContext(ctx).WithError(err).Error("Dropping malformed push request", "eventId", event.ID)
				return nil
			}

			return resilience.Retry(ctx, retryConfig, func() error {
				return syncService.PushInventory(ctx, data.ClientID, data.SKUID)
			})
		})
	defer consumer.Close()

	consumeCtx, cancelConsume := context.WithCancel(ctx)
	defer cancelConsume()

	go func() {
		if err := consumer.Start(consumeCtx); err != nil && err != context.Canceled {
			logger.WithError(err).Error("Consumer stopped")
		}
	}()

	logger.Info("Worker started", "topic", kafka.Topics.InventoryEvents)

	<-quit
	logger.Info("Shutting down worker...")
	cancelConsume()

	logger.Info("Worker stopped")
	return nil
}

// decodePushRequest recovers the typed payload from a consumed event
func decodePushRequest(event *cloudevents.PortalCloudEvent) (*cloudevents.InventoryPushRequestedData, error) {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}

	var data cloudevents.InventoryPushRequestedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	if data.ClientID == "" || data.SKUID == "" {
		return nil, fmt.Errorf("push request missing clientId or skuId")
	}

	return &data, nil
}

// Config holds worker configuration
type Config struct {
	MongoDB  *mongodb.Config
	Kafka    *kafka.Config
	Shopify  *shopify.Config
	PhotoDir string
}

func loadConfig() *Config {
	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	kafkaConfig.ClientID = serviceName
	kafkaConfig.ConsumerGroup = getEnv("KAFKA_CONSUMER_GROUP", serviceName)

	shopifyConfig := shopify.DefaultConfig()
	shopifyConfig.APIKey = getEnv("SHOPIFY_API_KEY", "")
	shopifyConfig.APISecret = getEnv("SHOPIFY_API_SECRET", "")
	shopifyConfig.LocationID = getEnv("SHOPIFY_LOCATION_ID", "")

	return &Config{
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "portal_db"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    50,
			MinPoolSize:    5,
		},
		Kafka:    kafkaConfig,
		Shopify:  shopifyConfig,
		PhotoDir: getEnv("PHOTO_STORAGE_DIR", "/var/lib/portal/photos"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
