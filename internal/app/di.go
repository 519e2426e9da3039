// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/allisson/ordersaga/internal/config"
	"github.com/allisson/ordersaga/internal/correlation"
	"github.com/allisson/ordersaga/internal/database"
	"github.com/allisson/ordersaga/internal/eventbus"
	"github.com/allisson/ordersaga/internal/http"
	"github.com/allisson/ordersaga/internal/lock"
	"github.com/allisson/ordersaga/internal/metrics"
	outboxUseCase "github.com/allisson/ordersaga/internal/outbox/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	redisClient     redis.UniversalClient
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Managers
	txManager   database.TxManager
	lockManager lock.Manager

	// Messaging
	bus           eventbus.Bus
	broker        *correlation.Broker
	stopMessaging context.CancelFunc

	// Repositories and use cases
	repos    *repositorySet
	useCases *useCaseSet

	// Servers and Workers
	httpServer    *http.Server
	metricsServer *http.MetricsServer
	outbox        *outboxUseCase.OutboxUseCase

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	redisInit           sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	txManagerInit       sync.Once
	lockManagerInit     sync.Once
	busInit             sync.Once
	brokerInit          sync.Once
	reposInit           sync.Once
	useCasesInit        sync.Once
	httpServerInit      sync.Once
	metricsServerInit   sync.Once
	outboxInit          sync.Once
	messagingStart      sync.Once

	errMu      sync.Mutex
	initErrors map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// resolve runs init once and memoizes its value, or its error under name.
func resolve[T any](c *Container, once *sync.Once, name string, field *T, init func() (T, error)) (T, error) {
	once.Do(func() {
		v, err := init()
		if err != nil {
			c.errMu.Lock()
			c.initErrors[name] = err
			c.errMu.Unlock()
			return
		}
		*field = v
	})

	c.errMu.Lock()
	err := c.initErrors[name]
	c.errMu.Unlock()
	if err != nil {
		var zero T
		return zero, err
	}
	return *field, nil
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	return resolve(c, &c.dbInit, "db", &c.db, c.initDB)
}

// RedisClient returns the Redis client used by the redis lock driver.
func (c *Container) RedisClient() (redis.UniversalClient, error) {
	return resolve(c, &c.redisInit, "redis", &c.redisClient, c.initRedisClient)
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	return resolve(c, &c.metricsProviderInit, "metricsProvider", &c.metricsProvider, c.initMetricsProvider)
}

// BusinessMetrics returns the business metrics recorder. It is a no-op when
// metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	return resolve(c, &c.businessMetricsInit, "businessMetrics", &c.businessMetrics, c.initBusinessMetrics)
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	return resolve(c, &c.txManagerInit, "txManager", &c.txManager, c.initTxManager)
}

// LockManager returns the distributed lock manager selected by LockDriver.
func (c *Container) LockManager() (lock.Manager, error) {
	return resolve(c, &c.lockManagerInit, "lockManager", &c.lockManager, c.initLockManager)
}

// EventBus returns the event bus selected by EventBusDriver.
func (c *Container) EventBus() (eventbus.Bus, error) {
	return resolve(c, &c.busInit, "eventBus", &c.bus, c.initEventBus)
}

// Broker returns the correlation broker listening for completions on the event bus.
func (c *Container) Broker() (*correlation.Broker, error) {
	return resolve(c, &c.brokerInit, "broker", &c.broker, c.initBroker)
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.bus != nil {
		if err := c.bus.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("event bus close: %w", err))
		}
	}

	if c.stopMessaging != nil {
		c.stopMessaging()
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("redis close: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(shutdownErrors...))
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.ConnectContext(context.Background(), database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func (c *Container) initRedisClient() (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     c.config.RedisAddr,
		Password: c.config.RedisPassword,
		DB:       c.config.RedisDB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}
	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	err = provider.EnableTraceExport(context.Background(), metrics.TraceExportConfig{
		Endpoint: c.config.TraceExportEndpoint,
		URLPath:  c.config.TraceExportURLPath,
		Insecure: c.config.TraceExportInsecure,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	provider.InstallGlobals()
	return provider, nil
}

func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}
	return metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	if c.config.DBDriver == "memory" {
		return database.NewMemoryTxManager(), nil
	}
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

func (c *Container) initLockManager() (lock.Manager, error) {
	switch c.config.LockDriver {
	case "memory":
		return lock.NewMemoryManager(c.Logger()), nil
	case "redis":
		client, err := c.RedisClient()
		if err != nil {
			return nil, fmt.Errorf("failed to get redis client for lock manager: %w", err)
		}
		return lock.NewRedisManager(client, c.Logger(), "ordersaga:lock:"), nil
	default:
		return nil, fmt.Errorf("unsupported lock driver: %s", c.config.LockDriver)
	}
}

func (c *Container) initEventBus() (eventbus.Bus, error) {
	switch c.config.EventBusDriver {
	case "memory":
		return eventbus.NewMemoryBus(c.config.EventBusWorkers, c.config.EventBusBuffer, c.Logger()), nil
	case "kafka":
		brokers := c.config.KafkaBrokerList()
		if len(brokers) == 0 {
			return nil, fmt.Errorf("kafka event bus requires at least one broker")
		}
		return eventbus.NewKafkaBus(eventbus.KafkaConfig{
			Brokers:           brokers,
			RequestTopic:      c.config.KafkaRequestTopic,
			CompletionTopic:   c.config.KafkaCompletionTopic,
			NotificationTopic: c.config.KafkaNotificationTopic,
			GroupID:           c.config.KafkaGroupID,
			InstanceID:        c.kafkaInstanceID(),
		}, c.Logger()), nil
	default:
		return nil, fmt.Errorf("unsupported event bus driver: %s", c.config.EventBusDriver)
	}
}

func (c *Container) kafkaInstanceID() string {
	if c.config.KafkaInstanceID != "" {
		return c.config.KafkaInstanceID
	}
	return uuid.Must(uuid.NewV7()).String()
}

func (c *Container) initBroker() (*correlation.Broker, error) {
	bus, err := c.EventBus()
	if err != nil {
		return nil, fmt.Errorf("failed to get event bus for broker: %w", err)
	}
	broker := correlation.NewBroker(bus, c.Logger(), correlation.WithLateWindow(c.config.CorrelationLateWindow))
	broker.Listen(bus, completionTypes...)
	return broker, nil
}
