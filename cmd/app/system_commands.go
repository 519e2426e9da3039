package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/ordersaga/cmd/app/commands"
	"github.com/allisson/ordersaga/internal/app"
	"github.com/allisson/ordersaga/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the HTTP server, event bus handlers and outbox relay",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Apply database migrations for the configured driver",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
		{
			Name:  "prune-outbox",
			Usage: "Delete relayed outbox events older than the retention window",
			Flags: []cli.Flag{
				&cli.DurationFlag{
					Name:  "retention",
					Usage: "Override OUTBOX_RETENTION_HOURS (e.g. 72h)",
				},
				formatFlag,
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				if cmd.IsSet("retention") {
					cfg.OutboxRetention = cmd.Duration("retention")
				}
				if cfg.OutboxRetention <= 0 {
					return errors.New("retention must be positive")
				}

				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				outbox, err := container.OutboxUseCase()
				if err != nil {
					return err
				}
				return commands.RunPruneOutbox(
					ctx,
					outbox,
					container.Logger(),
					os.Stdout,
					cmd.String("format"),
				)
			},
		},
	}
}
