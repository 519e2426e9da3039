// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	balanceHTTP "github.com/allisson/ordersaga/internal/balance/http"
	"github.com/allisson/ordersaga/internal/config"
	couponHTTP "github.com/allisson/ordersaga/internal/coupon/http"
	inventoryHTTP "github.com/allisson/ordersaga/internal/inventory/http"
	"github.com/allisson/ordersaga/internal/metrics"
	orderHTTP "github.com/allisson/ordersaga/internal/order/http"
	userHTTP "github.com/allisson/ordersaga/internal/user/http"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Handlers groups the domain handlers mounted under /v1.
type Handlers struct {
	User    *userHTTP.UserHandler
	Product *inventoryHTTP.ProductHandler
	Coupon  *couponHTTP.CouponHandler
	Balance *balanceHTTP.BalanceHandler
	Order   *orderHTTP.OrderHandler
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *gin.Engine
	logger *slog.Logger

	mu     sync.RWMutex
	checks map[string]ReadinessCheck
}

// NewServer creates a new HTTP server
func NewServer(
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		logger: logger,
		checks: make(map[string]ReadinessCheck),
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// AddReadinessCheck registers a dependency reported by /ready.
func (s *Server) AddReadinessCheck(name string, check ReadinessCheck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

// SetupRouter builds the gin engine with middleware and every route.
func (s *Server) SetupRouter(cfg *config.Config, handlers Handlers, metricsProvider *metrics.Provider) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if cors := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); cors != nil {
		router.Use(cors)
	}
	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	if cfg.RateLimitEnabled {
		v1.Use(RateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}

	v1.POST("/users", handlers.User.RegisterHandler)
	v1.GET("/users/:id", handlers.User.GetHandler)
	v1.GET("/users/:id/orders", handlers.Order.ListByUserHandler)

	v1.POST("/products", handlers.Product.CreateHandler)
	v1.GET("/products/:id", handlers.Product.GetHandler)

	v1.POST("/coupons", handlers.Coupon.CreateHandler)
	v1.GET("/coupons/:id", handlers.Coupon.GetHandler)
	v1.POST("/coupons/:id/issue", handlers.Coupon.IssueHandler)
	v1.GET("/user-coupons/:id", handlers.Coupon.GetUserCouponHandler)

	v1.GET("/balances/:user_id", handlers.Balance.GetHandler)
	v1.POST("/balances/:user_id/charge", handlers.Balance.ChargeHandler)

	v1.POST("/orders", handlers.Order.CreateHandler)
	v1.GET("/orders/:id", handlers.Order.GetHandler)

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router not configured, call SetupRouter first")
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler runs every registered check with a short deadline.
func (s *Server) readinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	checks := make([]ReadinessCheck, len(names))
	for i, name := range names {
		checks[i] = s.checks[name]
	}
	s.mu.RUnlock()

	ready := true
	components := make(map[string]string, len(names))
	for i, name := range names {
		if err := checks[i](ctx); err != nil {
			s.logger.Warn("readiness check failed", slog.String("component", name), slog.Any("error", err))
			components[name] = "error"
			ready = false
			continue
		}
		components[name] = "ok"
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
}
