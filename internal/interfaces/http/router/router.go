// Package router assembles the gin engine of the back-office API.
package router

import (
	"net/http"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/cache"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/interfaces/http/handler"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// HealthPath is served without authentication
const HealthPath = "/health"

// Handlers groups every HTTP handler of the API
type Handlers struct {
	Bills     *handler.BillHandler
	Accounts  *handler.AccountHandler
	Payments  *handler.PaymentHandler
	Inventory *handler.InventoryHandler
	P2P       *handler.P2PHandler
	Health    *handler.HealthHandler
}

// Config holds the cross-cutting pieces of the engine. A nil RateLimiter
// disables rate limiting; a nil IdempotencyStore disables key checking.
type Config struct {
	Logger           *zap.Logger
	Verifier         middleware.TokenVerifier
	RateLimiter      cache.RateLimiter
	IdempotencyStore shared.IdempotencyStore
	IdempotencyTTL   time.Duration
	Tracing          middleware.TracingConfig
	Meter            metric.Meter
	MaxBodyBytes     int64
	TrustedProxies   []string
}

// RouteRegistrar registers a set of routes under the versioned API group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// DomainGroup is a prefix with its own middleware and routes
type DomainGroup struct {
	prefix     string
	middleware []gin.HandlerFunc
	routes     []routeDefinition
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a route group mounted at prefix
func NewDomainGroup(prefix string) *DomainGroup {
	return &DomainGroup{prefix: prefix}
}

// Use adds middleware to this group
func (dg *DomainGroup) Use(mw ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, mw...)
	return dg
}

// Handle registers a route
func (dg *DomainGroup) Handle(method, path string, handlers ...gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: method, path: path, handlers: handlers})
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodGet, path, handlers...)
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodPost, path, handlers...)
}

// PUT registers a PUT route
func (dg *DomainGroup) PUT(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodPut, path, handlers...)
}

// DELETE registers a DELETE route
func (dg *DomainGroup) DELETE(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodDelete, path, handlers...)
}

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)
	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}
	for _, route := range dg.routes {
		group.Handle(route.method, route.path, route.handlers...)
	}
}

// New builds the engine: tracing, metrics, logging, recovery and body limits for
// every request, then identity and rate limiting for /api/v1.
func New(cfg Config, h Handlers) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies, trusting none", zap.Error(err))
		_ = engine.SetTrustedProxies(nil)
	}

	engine.Use(middleware.Tracing(cfg.Tracing))
	engine.Use(middleware.HTTPMetrics(cfg.Meter))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	if h.Health != nil {
		engine.GET(HealthPath, h.Health.Check)
	}

	api := engine.Group("/api/v1")
	api.Use(middleware.Identity(middleware.IdentityConfig{Verifier: cfg.Verifier}))
	api.Use(middleware.TracingAttributeInjector())
	if cfg.RateLimiter != nil {
		api.Use(middleware.RateLimit(cfg.RateLimiter))
	}

	idem := func(c *gin.Context) { c.Next() }
	if cfg.IdempotencyStore != nil {
		ttl := cfg.IdempotencyTTL
		if ttl <= 0 {
			ttl = shared.DefaultIdempotencyConfig().TTL
		}
		idem = middleware.Idempotency(cfg.IdempotencyStore, ttl)
	}

	for _, g := range registrars(h, idem) {
		g.RegisterRoutes(api)
	}
	return engine
}

func registrars(h Handlers, idem gin.HandlerFunc) []RouteRegistrar {
	var groups []RouteRegistrar

	if h.Bills != nil {
		bills := NewDomainGroup("/bills").
			POST("", h.Bills.Create).
			GET("", h.Bills.List).
			GET("/:id", h.Bills.Get).
			PUT("/:id", h.Bills.Update).
			DELETE("/:id", h.Bills.Delete).
			POST("/:id/restore", h.Bills.Restore)
		if h.Payments != nil {
			bills.POST("/:id/payments", idem, h.Payments.PayBill)
		}
		groups = append(groups, bills)
	}

	if h.Accounts != nil {
		groups = append(groups, NewDomainGroup("/accounts").
			POST("", h.Accounts.Create).
			GET("/:id", h.Accounts.Get).
			PUT("/:id", h.Accounts.Update))
	}

	purchaseBills := NewDomainGroup("/purchase-bills")
	if h.Payments != nil {
		purchaseBills.POST("/:id/payments", idem, h.Payments.PayPurchaseBill)
		groups = append(groups, NewDomainGroup("/payslips").
			POST("/:id/payments", idem, h.Payments.PayPayslip))
	}
	if h.Inventory != nil {
		purchaseBills.POST("/:id/receive", h.Inventory.Receive)
		groups = append(groups, NewDomainGroup("/inventory").
			GET("/stock/:itemId", h.Inventory.GetStock))
	}
	groups = append(groups, purchaseBills)

	if h.P2P != nil {
		groups = append(groups,
			NewDomainGroup("/purchase-orders").
				POST("/:id/flip", h.P2P.Flip),
			NewDomainGroup("/p2p-invoices").
				POST("/:id/approve", h.P2P.Approve).
				POST("/:id/reject", h.P2P.Reject),
		)
	}
	return groups
}
