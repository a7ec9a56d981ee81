package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/cadencehq/cadence/pkg/cmd"
	"github.com/cadencehq/cadence/pkg/compliance"
	"github.com/cadencehq/cadence/pkg/config"
	"github.com/cadencehq/cadence/pkg/events"
	"github.com/cadencehq/cadence/pkg/log"
	"github.com/cadencehq/cadence/pkg/models"
	"github.com/cadencehq/cadence/pkg/otelhelper"
	"github.com/cadencehq/cadence/pkg/sources/webhook"
)

func main() {
	command := &cli.Command{
		Name:                  "cadence-worker",
		EnableShellCompletion: true,
		Usage:                 "Start workers to execute automations and workflows",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "compliance-config",
				Usage:   "Path to the compliance settings YAML file",
				Value:   "",
				Sources: cli.EnvVars("COMPLIANCE_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for shared rate limits and opt-outs (in-memory if empty)",
				Value:   "",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.IntFlag{
				Name:    "webhook-port",
				Usage:   "Port for the webhook event source (0 disables it)",
				Value:   0,
				Sources: cli.EnvVars("WEBHOOK_PORT"),
			},
			&cli.StringFlag{
				Name:    "webhook-token",
				Usage:   "Shared secret required on webhook calls",
				Value:   "",
				Sources: cli.EnvVars("WEBHOOK_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (json, text)",
				Value:   "json",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("cadence-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing Cadence Worker")

			tracer, err := otelhelper.NewTracer(ctx, "cadence-worker")
			if err != nil {
				return err
			}

			registry := cmd.NewRegistry(logger)

			eventBus := cmd.NewEventBus(command.String("event-bus"), "worker", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			settings := compliance.NewStaticSettings(
				config.LoadComplianceSettingsOrDefault(command.String("compliance-config")))

			optouts, counter := cmd.NewComplianceStores(command.String("redis-url"))

			if port := int(command.Int("webhook-port")); port > 0 {
				source := webhook.NewSource(port, command.String("webhook-token"), logger)

				err := source.Start(ctx, func(ctx context.Context, event models.Event) error {
					wire := events.EventReceived{
						BaseEvent: events.NewBaseEvent(events.EventReceivedEvent),
						Event:     event,
					}
					wire.SourceID = workerID

					return eventBus.Publish(ctx, event.ContactID, wire)
				})
				if err != nil {
					return err
				}

				defer func() {
					if err := source.Stop(ctx); err != nil {
						logger.ErrorContext(ctx, "Failed to stop webhook source", "error", err)
					}
				}()
			}

			worker := NewWorkerManager(
				workerID,
				persistence,
				eventBus,
				registry,
				settings,
				optouts,
				counter,
				tracer,
				logger,
			)

			if err := worker.Start(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to start worker", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
