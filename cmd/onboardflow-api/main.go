package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/virion-labs/onboardflow/pkg/cmd"
	"github.com/virion-labs/onboardflow/pkg/dispatch"
	"github.com/virion-labs/onboardflow/pkg/log"
	"github.com/virion-labs/onboardflow/pkg/otelhelper"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "onboardflow-api",
		Usage:                 "Run the onboarding flow engine API",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the interaction session cache (in-memory cache when empty)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "roles-url",
				Usage:   "Endpoint for role assignment on completion",
				Sources: cli.EnvVars("ROLES_URL"),
			},
			&cli.StringFlag{
				Name:    "analytics-url",
				Usage:   "Endpoint for interaction analytics logging",
				Sources: cli.EnvVars("ANALYTICS_URL"),
			},
			&cli.StringFlag{
				Name:    "referral-url",
				Usage:   "Endpoint for referral conversion recording",
				Sources: cli.EnvVars("REFERRAL_URL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup("onboardflow-api", command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Onboardflow API")

			if command.Bool("tracing") {
				// NewTracer installs the global provider; the event bus
				// consumer picks it up through otel.Tracer.
				if _, err := otelhelper.NewTracer(ctx, "onboardflow-api"); err != nil {
					logger.ErrorContext(ctx, "Failed to initialize tracer", "error", err)
				}
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			interactionCache, err := cmd.NewInteractionCache(ctx, logger, command.String("redis-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := interactionCache.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close interaction cache", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			targets := dispatch.NewHTTPTargets(
				command.String("roles-url"),
				command.String("analytics-url"),
				command.String("referral-url"),
			)

			api := NewAPI(
				logger,
				persistence,
				interactionCache,
				eventBus,
				dispatch.NewDispatcher(logger, targets, targets, targets),
			)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
