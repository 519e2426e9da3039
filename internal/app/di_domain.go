package app

import (
	"fmt"

	balanceRepository "github.com/allisson/ordersaga/internal/balance/repository"
	balanceUseCase "github.com/allisson/ordersaga/internal/balance/usecase"
	couponRepository "github.com/allisson/ordersaga/internal/coupon/repository"
	couponUseCase "github.com/allisson/ordersaga/internal/coupon/usecase"
	"github.com/allisson/ordersaga/internal/event"
	inventoryRepository "github.com/allisson/ordersaga/internal/inventory/repository"
	inventoryUseCase "github.com/allisson/ordersaga/internal/inventory/usecase"
	"github.com/allisson/ordersaga/internal/lock"
	orderRepository "github.com/allisson/ordersaga/internal/order/repository"
	orderUseCase "github.com/allisson/ordersaga/internal/order/usecase"
	outboxRepository "github.com/allisson/ordersaga/internal/outbox/repository"
	outboxUseCase "github.com/allisson/ordersaga/internal/outbox/usecase"
	userRepository "github.com/allisson/ordersaga/internal/user/repository"
	userUseCase "github.com/allisson/ordersaga/internal/user/usecase"
)

// completionTypes are the event types the correlation broker listens for.
var completionTypes = []string{
	event.TypeStockReservationCompleted,
	event.TypeStockRestoreCompleted,
	event.TypeCouponUsageCompleted,
	event.TypeCouponRestoreCompleted,
	event.TypeBalanceDeductionCompleted,
	event.TypeBalanceRestoreCompleted,
}

type repositorySet struct {
	users       userUseCase.UserRepository
	products    inventoryUseCase.ProductRepository
	coupons     couponUseCase.CouponRepository
	userCoupons couponUseCase.UserCouponRepository
	balances    balanceUseCase.BalanceRepository
	orders      orderUseCase.OrderRepository
	outbox      outboxUseCase.OutboxEventRepository
}

type useCaseSet struct {
	users     userUseCase.UseCase
	products  inventoryUseCase.ProductUseCase
	coupons   couponUseCase.CouponUseCase
	issuance  couponUseCase.IssuanceUseCase
	balances  balanceUseCase.BalanceUseCase
	orders    orderUseCase.OrderUseCase
	reconcile *orderUseCase.Reconciler

	stock     *inventoryUseCase.StockHandler
	usage     *couponUseCase.UsageHandler
	deduction *balanceUseCase.DeductionHandler
}

func (c *Container) loadRepositories() (*repositorySet, error) {
	return resolve(c, &c.reposInit, "repositories", &c.repos, c.initRepositories)
}

func (c *Container) loadUseCases() (*useCaseSet, error) {
	return resolve(c, &c.useCasesInit, "useCases", &c.useCases, c.initUseCases)
}

// UserUseCase returns the user use case.
func (c *Container) UserUseCase() (userUseCase.UseCase, error) {
	uc, err := c.loadUseCases()
	if err != nil {
		return nil, err
	}
	return uc.users, nil
}

// ProductUseCase returns the product use case.
func (c *Container) ProductUseCase() (inventoryUseCase.ProductUseCase, error) {
	uc, err := c.loadUseCases()
	if err != nil {
		return nil, err
	}
	return uc.products, nil
}

// CouponUseCase returns the coupon catalog use case.
func (c *Container) CouponUseCase() (couponUseCase.CouponUseCase, error) {
	uc, err := c.loadUseCases()
	if err != nil {
		return nil, err
	}
	return uc.coupons, nil
}

// IssuanceUseCase returns the coupon issuance coordinator.
func (c *Container) IssuanceUseCase() (couponUseCase.IssuanceUseCase, error) {
	uc, err := c.loadUseCases()
	if err != nil {
		return nil, err
	}
	return uc.issuance, nil
}

// BalanceUseCase returns the balance use case.
func (c *Container) BalanceUseCase() (balanceUseCase.BalanceUseCase, error) {
	uc, err := c.loadUseCases()
	if err != nil {
		return nil, err
	}
	return uc.balances, nil
}

// OrderUseCase returns the order saga wrapped with metrics.
func (c *Container) OrderUseCase() (orderUseCase.OrderUseCase, error) {
	uc, err := c.loadUseCases()
	if err != nil {
		return nil, err
	}
	return uc.orders, nil
}

func (c *Container) initRepositories() (*repositorySet, error) {
	if c.config.DBDriver == "memory" {
		return &repositorySet{
			users:       userRepository.NewMemoryUserRepository(),
			products:    inventoryRepository.NewMemoryProductRepository(),
			coupons:     couponRepository.NewMemoryCouponRepository(),
			userCoupons: couponRepository.NewMemoryUserCouponRepository(),
			balances:    balanceRepository.NewMemoryBalanceRepository(),
			orders:      orderRepository.NewMemoryOrderRepository(),
			outbox:      outboxRepository.NewMemoryOutboxEventRepository(),
		}, nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for repositories: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return &repositorySet{
			users:       userRepository.NewPostgreSQLUserRepository(db),
			products:    inventoryRepository.NewPostgreSQLProductRepository(db),
			coupons:     couponRepository.NewPostgreSQLCouponRepository(db),
			userCoupons: couponRepository.NewPostgreSQLUserCouponRepository(db),
			balances:    balanceRepository.NewPostgreSQLBalanceRepository(db),
			orders:      orderRepository.NewPostgreSQLOrderRepository(db),
			outbox:      outboxRepository.NewPostgreSQLOutboxEventRepository(db),
		}, nil
	case "mysql":
		return &repositorySet{
			users:       userRepository.NewMySQLUserRepository(db),
			products:    inventoryRepository.NewMySQLProductRepository(db),
			coupons:     couponRepository.NewMySQLCouponRepository(db),
			userCoupons: couponRepository.NewMySQLUserCouponRepository(db),
			balances:    balanceRepository.NewMySQLBalanceRepository(db),
			orders:      orderRepository.NewMySQLOrderRepository(db),
			outbox:      outboxRepository.NewMySQLOutboxEventRepository(db),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initUseCases() (*useCaseSet, error) {
	repos, err := c.loadRepositories()
	if err != nil {
		return nil, err
	}
	txManager, err := c.TxManager()
	if err != nil {
		return nil, err
	}
	locks, err := c.LockManager()
	if err != nil {
		return nil, err
	}
	bus, err := c.EventBus()
	if err != nil {
		return nil, err
	}
	broker, err := c.Broker()
	if err != nil {
		return nil, err
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, err
	}

	logger := c.Logger()
	cfg := c.config
	balanceLockOpts := lock.Options{WaitTimeout: cfg.BalanceLockWait, LeaseTimeout: cfg.BalanceLockLease}

	reconciler := orderUseCase.NewReconciler(bus, businessMetrics, logger)
	broker.SetLateHandler(reconciler)

	saga := orderUseCase.NewOrderSaga(
		orderUseCase.Config{
			StepTimeout:    cfg.SagaStepTimeout,
			RestoreTimeout: cfg.SagaRestoreTimeout,
			MaxConcurrency: cfg.SagaMaxConcurrency,
		},
		broker,
		txManager,
		repos.orders,
		repos.outbox,
		repos.users,
		repos.products,
		businessMetrics,
		logger,
	)

	issuance := couponUseCase.NewIssuanceUseCase(
		txManager,
		repos.coupons,
		repos.userCoupons,
		repos.users,
		locks,
		lock.Options{WaitTimeout: cfg.CouponIssueLockWait, LeaseTimeout: cfg.CouponIssueLockLease},
		logger,
	)

	balances := balanceUseCase.NewBalanceUseCase(
		repos.balances,
		repos.users,
		locks,
		balanceLockOpts,
		cfg.BalanceMaxCharge,
		logger,
	)

	return &useCaseSet{
		users:     userUseCase.NewUserUseCase(repos.users),
		products:  inventoryUseCase.NewProductUseCase(repos.products),
		coupons:   couponUseCase.NewCouponUseCase(repos.coupons, repos.userCoupons),
		issuance:  couponUseCase.NewIssuanceUseCaseWithMetrics(issuance, businessMetrics),
		balances:  balanceUseCase.NewBalanceUseCaseWithMetrics(balances, businessMetrics),
		orders:    orderUseCase.NewOrderUseCaseWithMetrics(saga, businessMetrics),
		reconcile: reconciler,
		stock:     inventoryUseCase.NewStockHandler(repos.products, bus, logger),
		usage:     couponUseCase.NewUsageHandler(repos.coupons, repos.userCoupons, bus, logger),
		deduction: balanceUseCase.NewDeductionHandler(repos.balances, locks, balanceLockOpts, bus, logger),
	}, nil
}
