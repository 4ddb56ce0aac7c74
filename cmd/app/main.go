// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/pacharanero/checktick/cmd/app/commands"
	"github.com/pacharanero/checktick/internal/app"
	"github.com/pacharanero/checktick/internal/config"
)

const version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "checktick",
		Usage:   "Survey data encryption service",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := config.Load()
					container := app.NewContainer(cfg)
					return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
				},
			},
			{
				Name:  "provision-survey-key",
				Usage: "Provision the encryption key record for a survey",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "survey-id",
						Aliases:  []string{"s"},
						Required: true,
						Usage:    "Survey ID (UUID)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withKeyUseCase(ctx, func(ctx context.Context, container *app.Container) error {
						useCase, err := container.KeyUseCase()
						if err != nil {
							return err
						}
						return commands.RunProvisionSurveyKey(
							ctx,
							useCase,
							container.Logger(),
							commands.DefaultIO(),
							cmd.String("survey-id"),
							cmd.String("format"),
						)
					})
				},
			},
			{
				Name:  "migrate-legacy-key",
				Usage: "Upgrade a legacy raw-key survey record to the dual-wrap format",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "survey-id",
						Aliases:  []string{"s"},
						Required: true,
						Usage:    "Survey ID (UUID)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withKeyUseCase(ctx, func(ctx context.Context, container *app.Container) error {
						useCase, err := container.KeyUseCase()
						if err != nil {
							return err
						}
						return commands.RunMigrateLegacyKey(
							ctx,
							useCase,
							container.Logger(),
							commands.DefaultIO(),
							cmd.String("survey-id"),
							cmd.String("format"),
						)
					})
				},
			},
			{
				Name:  "clean-audit-events",
				Usage: "Delete unlock audit events older than specified days",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "days",
						Aliases:  []string{"d"},
						Required: true,
						Usage:    "Delete unlock audit events older than this many days",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withKeyUseCase(ctx, func(ctx context.Context, container *app.Container) error {
						useCase, err := container.UnlockAuditUseCase()
						if err != nil {
							return err
						}
						return commands.RunCleanAuditEvents(
							ctx,
							useCase,
							container.Logger(),
							os.Stdout,
							int(cmd.Int("days")),
							cmd.String("format"),
						)
					})
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}

// withKeyUseCase builds a container around a command action and guarantees
// its resources are released afterwards.
func withKeyUseCase(ctx context.Context, fn func(context.Context, *app.Container) error) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()

	defer func() {
		if err := container.Shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown container", slog.Any("error", err))
		}
	}()

	if err := fn(ctx, container); err != nil {
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}
