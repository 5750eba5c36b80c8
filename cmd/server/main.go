package main

import (
	"context"
	"time"

	v1 "github.com/alumnity/alumnity/internal/api/v1"
	"github.com/alumnity/alumnity/internal/audit"
	"github.com/alumnity/alumnity/internal/config"
	"github.com/alumnity/alumnity/internal/integration/stripe"
	"github.com/alumnity/alumnity/internal/integration/stripe/webhook"
	"github.com/alumnity/alumnity/internal/interfaces"
	"github.com/alumnity/alumnity/internal/logger"
	"github.com/alumnity/alumnity/internal/postgres"
	"github.com/alumnity/alumnity/internal/repository"
	"github.com/alumnity/alumnity/internal/rest/middleware"
	"github.com/alumnity/alumnity/internal/router"
	"github.com/alumnity/alumnity/internal/service"
	"github.com/alumnity/alumnity/internal/validator"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	app := fx.New(
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Postgres
			postgres.NewDB,

			// Repositories
			repository.NewTenantRepository,
			repository.NewSubscriptionRepository,
			repository.NewBillingEventRepository,
			repository.NewPaymentAttemptRepository,

			// Provider integration
			stripe.NewClient,
			provideProvider,

			// Audit
			audit.NewSink,

			// Services
			service.NewServiceParams,
			service.NewBillingSyncService,
			service.NewReconcilerService,
			service.NewQuantityService,
			service.NewCheckoutService,

			// Webhook boundary
			webhook.NewHandler,

			// HTTP handlers
			v1.NewHealthHandler,
			v1.NewWebhookHandler,
			v1.NewBillingHandler,
			v1.NewCheckoutHandler,
			provideTenantHandler,
			router.NewHandlers,
			middleware.NewRateLimiter,
			router.SetupRouter,
		),
		fx.Invoke(startServer),
	)

	app.Run()
}

func provideProvider(client *stripe.Client, log *logger.Logger) interfaces.BillingProvider {
	return stripe.NewProvider(client, log)
}

func provideTenantHandler(params service.ServiceParams, log *logger.Logger) *v1.TenantHandler {
	return v1.NewTenantHandler(params.TenantRepo, log)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infof("Starting API server on %s", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}
