package router

import (
	v1 "github.com/alumnity/alumnity/internal/api/v1"
	"github.com/alumnity/alumnity/internal/config"
	"github.com/alumnity/alumnity/internal/logger"
	"github.com/alumnity/alumnity/internal/rest/middleware"
	"github.com/alumnity/alumnity/internal/types"
	"github.com/gin-gonic/gin"
)

// Handlers bundles the route handlers for wiring
type Handlers struct {
	Health   *v1.HealthHandler
	Webhook  *v1.WebhookHandler
	Billing  *v1.BillingHandler
	Checkout *v1.CheckoutHandler
	Tenant   *v1.TenantHandler
}

func NewHandlers(
	health *v1.HealthHandler,
	webhook *v1.WebhookHandler,
	billing *v1.BillingHandler,
	checkout *v1.CheckoutHandler,
	tenant *v1.TenantHandler,
) *Handlers {
	return &Handlers{
		Health:   health,
		Webhook:  webhook,
		Billing:  billing,
		Checkout: checkout,
		Tenant:   tenant,
	}
}

func SetupRouter(
	cfg *config.Configuration,
	handlers *Handlers,
	rateLimiter *middleware.RateLimiter,
	logger *logger.Logger,
) *gin.Engine {
	if cfg.Deployment.Mode == types.ModeProd {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Health)

	// The rate limit runs ahead of signature verification
	webhooks := router.Group("/webhooks", rateLimiter.Middleware())
	webhooks.POST("/stripe", handlers.Webhook.HandleStripeWebhook)

	api := router.Group("/v1", middleware.AuthMiddleware(cfg, logger))
	{
		api.GET("/tenant", handlers.Tenant.GetTenant)
		api.POST("/checkout", handlers.Checkout.CreateCheckout)

		billing := api.Group("/billing", middleware.BillingAdminMiddleware())
		billing.POST("/quantity", handlers.Billing.AdjustQuantity)
		billing.GET("/summary", handlers.Billing.GetPlanSummary)
	}

	return router
}
