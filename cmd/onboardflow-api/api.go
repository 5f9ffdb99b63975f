// Package main provides the Onboardflow API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/virion-labs/onboardflow/pkg/cache"
	"github.com/virion-labs/onboardflow/pkg/dispatch"
	"github.com/virion-labs/onboardflow/pkg/eventbus"
	"github.com/virion-labs/onboardflow/pkg/persistence"
	"github.com/virion-labs/onboardflow/pkg/services"
	"github.com/virion-labs/onboardflow/pkg/web"
)

type API struct {
	logger           *slog.Logger
	persistence      persistence.Persistence
	interactionCache cache.InteractionCache
	eventBus         eventbus.EventBus
	dispatcher       *dispatch.Dispatcher
	validate         *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	interactionCache cache.InteractionCache,
	eventBus eventbus.EventBus,
	dispatcher *dispatch.Dispatcher,
) *API {
	return &API{
		logger:           logger,
		persistence:      persistence,
		interactionCache: interactionCache,
		eventBus:         eventBus,
		dispatcher:       dispatcher,
		validate:         validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	onboardingService := services.NewOnboarding(a.logger, a.persistence, a.interactionCache, a.dispatcher, a.eventBus)
	campaignService := services.NewCampaign(a.logger, a.persistence)

	handlers := web.NewAPIHandlers(onboardingService, campaignService, a.interactionCache, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Onboardflow API")
	})

	s := app.Group("/sessions")
	s.Get("/", handlers.GetSession)
	s.Post("/", handlers.CreateSession)
	s.Put("/", handlers.SubmitField)
	s.Put("/responses", handlers.SubmitResponses)
	s.Post("/complete", handlers.CompleteSession)
	s.Post("/restart", handlers.RestartSession)

	ic := app.Group("/interaction-cache")
	ic.Get("/", handlers.GetCacheEntry)
	ic.Post("/", handlers.StoreCacheEntry)
	ic.Delete("/", handlers.DeleteCacheEntry)

	campaigns := app.Group("/campaigns")
	campaigns.Get("/:id", handlers.GetCampaign)
	campaigns.Put("/:id/schema", handlers.IngestCampaignSchema)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
