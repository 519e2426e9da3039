package main

import (
	"context"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/allisson/ordersaga/cmd/app/commands"
	"github.com/allisson/ordersaga/internal/app"
	"github.com/allisson/ordersaga/internal/config"
)

var formatFlag = &cli.StringFlag{
	Name:    "format",
	Aliases: []string{"f"},
	Value:   "text",
	Usage:   "Output format: 'text' or 'json'",
}

// withContainer runs fn against a container built from the environment.
func withContainer(ctx context.Context, fn func(*app.Container) error) error {
	container := app.NewContainer(config.Load())
	defer func() { _ = container.Shutdown(ctx) }()
	return fn(container)
}

func getCatalogCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-user",
			Usage: "Register a user",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "User name"},
				&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true, Usage: "User email"},
				formatFlag,
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, func(container *app.Container) error {
					useCase, err := container.UserUseCase()
					if err != nil {
						return err
					}
					return commands.RunCreateUser(
						ctx,
						useCase,
						container.Logger(),
						os.Stdout,
						cmd.String("name"),
						cmd.String("email"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "create-product",
			Usage: "Create a product with initial stock",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "Product name"},
				&cli.Int64Flag{Name: "price", Aliases: []string{"p"}, Required: true, Usage: "Unit price in minor units"},
				&cli.IntFlag{Name: "stock", Aliases: []string{"s"}, Value: 0, Usage: "Initial stock"},
				formatFlag,
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, func(container *app.Container) error {
					useCase, err := container.ProductUseCase()
					if err != nil {
						return err
					}
					return commands.RunCreateProduct(
						ctx,
						useCase,
						container.Logger(),
						os.Stdout,
						cmd.String("name"),
						cmd.Int64("price"),
						int(cmd.Int("stock")),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "create-coupon",
			Usage: "Create a coupon campaign",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "Campaign name"},
				&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Value: "fixed", Usage: "Discount type: 'fixed' or 'percent'"},
				&cli.Int64Flag{Name: "value", Aliases: []string{"v"}, Required: true, Usage: "Discount amount or percent"},
				&cli.IntFlag{Name: "max-issuance", Aliases: []string{"m"}, Required: true, Usage: "How many copies can be issued"},
				&cli.DurationFlag{Name: "valid-for", Value: 30 * 24 * time.Hour, Usage: "How long the campaign runs"},
				formatFlag,
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, func(container *app.Container) error {
					useCase, err := container.CouponUseCase()
					if err != nil {
						return err
					}
					return commands.RunCreateCoupon(
						ctx,
						useCase,
						container.Logger(),
						os.Stdout,
						cmd.String("name"),
						cmd.String("type"),
						cmd.Int64("value"),
						int(cmd.Int("max-issuance")),
						cmd.Duration("valid-for"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "issue-coupon",
			Usage: "Issue a coupon to a user",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "coupon-id", Aliases: []string{"c"}, Required: true, Usage: "Coupon ID (UUID)"},
				&cli.StringFlag{Name: "user-id", Aliases: []string{"u"}, Required: true, Usage: "User ID (UUID)"},
				formatFlag,
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, func(container *app.Container) error {
					useCase, err := container.IssuanceUseCase()
					if err != nil {
						return err
					}
					return commands.RunIssueCoupon(
						ctx,
						useCase,
						container.Logger(),
						os.Stdout,
						cmd.String("coupon-id"),
						cmd.String("user-id"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "charge-balance",
			Usage: "Top up a user's balance",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "user-id", Aliases: []string{"u"}, Required: true, Usage: "User ID (UUID)"},
				&cli.Int64Flag{Name: "amount", Aliases: []string{"a"}, Required: true, Usage: "Amount in minor units"},
				formatFlag,
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, func(container *app.Container) error {
					useCase, err := container.BalanceUseCase()
					if err != nil {
						return err
					}
					return commands.RunChargeBalance(
						ctx,
						useCase,
						container.Logger(),
						os.Stdout,
						cmd.String("user-id"),
						cmd.Int64("amount"),
						cmd.String("format"),
					)
				})
			},
		},
	}
}
