package api

import (
	"github.com/gin-gonic/gin"

	"github.com/fulfillment-platform/portal/internal/api/handlers"
	"github.com/fulfillment-platform/portal/pkg/logging"
	"github.com/fulfillment-platform/portal/pkg/metrics"
	"github.com/fulfillment-platform/portal/pkg/middleware"
	"github.com/fulfillment-platform/portal/pkg/ratelimit"
)

// Config holds router dependencies
type Config struct {
	ServiceName    string
	Logger         *logging.Logger
	Metrics        *metrics.Metrics
	WebhookLimiter *ratelimit.Limiter
	OAuthLimiter   *ratelimit.Limiter
	Readiness      func() error
}

// Handlers collects the route handlers the router mounts
type Handlers struct {
	Inventory     *handlers.InventoryHandler
	SKUs          *handlers.SKUHandler
	ASNs          *handlers.ASNHandler
	Discrepancies *handlers.DiscrepancyHandler
	Returns       *handlers.ReturnsHandler
	Webhooks      *handlers.WebhookHandler
	Sync          *handlers.SyncHandler
}

// NewRouter builds the portal HTTP surface: public webhook and OAuth
// endpoints behind per-key rate limits, and the authenticated v1 API behind
// the tenant context.
func NewRouter(config *Config, h *Handlers) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	middleware.Setup(router, middleware.DefaultConfig(config.ServiceName, config.Logger.Logger))
	router.Use(middleware.SimpleTracingMiddleware(config.ServiceName))
	router.Use(middleware.MetricsMiddleware(config.Metrics))

	router.GET("/health", middleware.HealthCheck(config.ServiceName))
	router.GET("/ready", middleware.ReadinessCheck(config.ServiceName, config.Readiness))
	router.GET("/metrics", middleware.MetricsEndpoint(config.Metrics))
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	// Public surface. Webhooks are limited per shop domain, the OAuth
	// callback per caller IP; both limiters fail open.
	webhooks := router.Group("/webhooks")
	webhooks.Use(ratelimit.Middleware(config.WebhookLimiter, ratelimit.KeyByShopDomain, config.Metrics))
	h.Webhooks.RegisterRoutes(webhooks)

	oauth := router.Group("/oauth")
	oauth.Use(ratelimit.Middleware(config.OAuthLimiter, ratelimit.FixedKey("oauth"), config.Metrics))
	h.Sync.RegisterCallbackRoutes(oauth)

	// Authenticated surface
	v1 := router.Group("/api/v1")
	v1.Use(TenantContext())
	h.Inventory.RegisterRoutes(v1)
	h.SKUs.RegisterRoutes(v1)
	h.ASNs.RegisterRoutes(v1)
	h.Discrepancies.RegisterRoutes(v1)
	h.Returns.RegisterRoutes(v1)
	h.Sync.RegisterRoutes(v1)

	admin := v1.Group("")
	admin.Use(RequireAdmin())
	h.SKUs.RegisterAdminRoutes(admin)
	h.ASNs.RegisterAdminRoutes(admin)
	h.Discrepancies.RegisterAdminRoutes(admin)

	return router
}
