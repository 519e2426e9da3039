package app

import (
	"context"
	"fmt"
	"log/slog"

	balanceHTTP "github.com/allisson/ordersaga/internal/balance/http"
	couponHTTP "github.com/allisson/ordersaga/internal/coupon/http"
	"github.com/allisson/ordersaga/internal/http"
	inventoryHTTP "github.com/allisson/ordersaga/internal/inventory/http"
	orderHTTP "github.com/allisson/ordersaga/internal/order/http"
	outboxUseCase "github.com/allisson/ordersaga/internal/outbox/usecase"
	userHTTP "github.com/allisson/ordersaga/internal/user/http"
)

// HTTPServer returns the HTTP server with every domain handler mounted.
func (c *Container) HTTPServer() (*http.Server, error) {
	return resolve(c, &c.httpServerInit, "httpServer", &c.httpServer, c.initHTTPServer)
}

// MetricsServer returns the Prometheus metrics server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	return resolve(c, &c.metricsServerInit, "metricsServer", &c.metricsServer, c.initMetricsServer)
}

// OutboxUseCase returns the outbox relay publishing order notifications to the event bus.
func (c *Container) OutboxUseCase() (*outboxUseCase.OutboxUseCase, error) {
	return resolve(c, &c.outboxInit, "outbox", &c.outbox, c.initOutboxUseCase)
}

// StartMessaging subscribes the resource handlers, starts the event bus and
// runs the broker's tombstone sweeper. Messaging does not stop when ctx is
// cancelled: sagas still draining from the HTTP server need their completions
// and compensations, so the bus and the sweeper stop in Shutdown. It must be
// called once before the HTTP server accepts orders; later calls are no-ops.
func (c *Container) StartMessaging(ctx context.Context) error {
	var startErr error
	c.messagingStart.Do(func() {
		startErr = c.startMessaging(ctx)
	})
	return startErr
}

func (c *Container) startMessaging(ctx context.Context) error {
	uc, err := c.loadUseCases()
	if err != nil {
		return err
	}
	bus, err := c.EventBus()
	if err != nil {
		return err
	}
	broker, err := c.Broker()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.mu.Lock()
	c.stopMessaging = cancel
	c.mu.Unlock()

	uc.stock.Register(bus)
	uc.usage.Register(bus)
	uc.deduction.Register(bus)

	if err := bus.Start(ctx); err != nil {
		return fmt.Errorf("failed to start event bus: %w", err)
	}
	go broker.Run(ctx)

	c.Logger().Info("messaging started",
		slog.String("event_bus_driver", c.config.EventBusDriver),
		slog.String("lock_driver", c.config.LockDriver),
	)
	return nil
}

func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	userUC, err := c.UserUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get user use case: %w", err)
	}
	productUC, err := c.ProductUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get product use case: %w", err)
	}
	couponUC, err := c.CouponUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get coupon use case: %w", err)
	}
	issuanceUC, err := c.IssuanceUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get issuance use case: %w", err)
	}
	balanceUC, err := c.BalanceUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get balance use case: %w", err)
	}
	orderUC, err := c.OrderUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get order use case: %w", err)
	}
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider: %w", err)
	}

	server := http.NewServer(c.config.ServerHost, c.config.ServerPort, logger)
	server.SetupRouter(c.config, http.Handlers{
		User:    userHTTP.NewUserHandler(userUC, logger),
		Product: inventoryHTTP.NewProductHandler(productUC, logger),
		Coupon:  couponHTTP.NewCouponHandler(couponUC, issuanceUC, logger),
		Balance: balanceHTTP.NewBalanceHandler(balanceUC, logger),
		Order:   orderHTTP.NewOrderHandler(orderUC, logger),
	}, provider)

	if c.config.DBDriver != "memory" {
		db, err := c.DB()
		if err != nil {
			return nil, err
		}
		server.AddReadinessCheck("database", db.PingContext)
	}
	if c.config.LockDriver == "redis" {
		client, err := c.RedisClient()
		if err != nil {
			return nil, err
		}
		server.AddReadinessCheck("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}

	return server, nil
}

func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, nil
	}
	broker, err := c.Broker()
	if err != nil {
		return nil, err
	}
	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider, broker.Pending), nil
}

func (c *Container) initOutboxUseCase() (*outboxUseCase.OutboxUseCase, error) {
	repos, err := c.loadRepositories()
	if err != nil {
		return nil, err
	}
	txManager, err := c.TxManager()
	if err != nil {
		return nil, err
	}
	bus, err := c.EventBus()
	if err != nil {
		return nil, err
	}

	logger := c.Logger()
	return outboxUseCase.NewOutboxUseCase(
		outboxUseCase.Config{
			Interval:      c.config.OutboxInterval,
			BatchSize:     c.config.OutboxBatchSize,
			MaxRetries:    c.config.OutboxMaxRetries,
			Retention:     c.config.OutboxRetention,
			PruneInterval: c.config.OutboxPruneInterval,
		},
		txManager,
		repos.outbox,
		outboxUseCase.NewPublishingEventProcessor(bus, logger),
		logger,
	), nil
}
