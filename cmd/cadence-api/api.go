// Package main provides the Cadence API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/cadencehq/cadence/pkg/compliance"
	"github.com/cadencehq/cadence/pkg/eventbus"
	"github.com/cadencehq/cadence/pkg/persistence"
	"github.com/cadencehq/cadence/pkg/registry"
	"github.com/cadencehq/cadence/pkg/services"
	"github.com/cadencehq/cadence/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	settings    *compliance.StaticSettings
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	settings *compliance.StaticSettings,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		settings:    settings,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	automationService := services.NewAutomation(a.persistence, a.registry)
	workflowService := services.NewWorkflow(a.persistence, a.registry)
	settingsService := services.NewSettings(a.settings)

	handlers := web.NewAPIHandlers(
		automationService,
		workflowService,
		settingsService,
		a.persistence,
		a.validate,
		a.registry,
		a.eventBus,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Cadence API")
	})

	au := app.Group("/automations")
	au.Get("/", handlers.GetAutomations)
	au.Post("/", handlers.CreateAutomation)
	au.Get("/:id", handlers.GetAutomation)
	au.Put("/:id", handlers.UpdateAutomation)
	au.Delete("/:id", handlers.DeleteAutomation)
	au.Post("/:id/enable", handlers.EnableAutomation)
	au.Post("/:id/disable", handlers.DisableAutomation)
	au.Get("/:id/logs", handlers.GetAutomationLogs)

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Put("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/enable", handlers.EnableWorkflow)
	w.Post("/:id/disable", handlers.DisableWorkflow)

	app.Get("/enrollments/:id/logs", handlers.GetEnrollmentLogs)
	app.Get("/contacts/:id/enrollments", handlers.GetContactEnrollments)

	app.Get("/settings", handlers.GetSettings)
	app.Put("/settings", handlers.UpdateSettings)

	app.Get("/senders", handlers.GetSenders)
	app.Get("/senders/:type/schema", handlers.GetSenderSchema)

	app.Post("/events", handlers.IngestEvent)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
