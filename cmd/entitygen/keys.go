package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/atvirokodosprendimai/entitygen/internal/app"
	"github.com/atvirokodosprendimai/entitygen/internal/core/domain"
	"github.com/atvirokodosprendimai/entitygen/internal/core/usecase"
)

func keysCommand() *cli.Command {
	return &cli.Command{
		Name:  "keys",
		Usage: "Manage tenant API keys",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "db-path",
				Value: "./entitygen.sqlite",
				Usage: "SQLite file path",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Register an API key for a tenant",
				ArgsUsage: "TOKEN",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "tenant", Value: "default", Usage: "Tenant the key belongs to"},
					&cli.StringFlag{Name: "name", Value: "cli", Usage: "Name recorded as actor on session events"},
				},
				Action: withAuth(func(ctx context.Context, c *cli.Command, auth *usecase.AuthService) error {
					if c.Args().Len() != 1 {
						return cli.Exit("keys add expects exactly one TOKEN", 2)
					}
					return runKeysAdd(ctx, auth, c.Args().First(), c.String("tenant"), c.String("name"), c.Root().Writer)
				}),
			},
			{
				Name:      "revoke",
				Usage:     "Deactivate an API key",
				ArgsUsage: "TOKEN",
				Action: withAuth(func(ctx context.Context, c *cli.Command, auth *usecase.AuthService) error {
					if c.Args().Len() != 1 {
						return cli.Exit("keys revoke expects exactly one TOKEN", 2)
					}
					return runKeysRevoke(ctx, auth, c.Args().First(), c.Root().Writer)
				}),
			},
			{
				Name:  "list",
				Usage: "List the API keys of a tenant",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "tenant", Value: "default", Usage: "Tenant to list"},
				},
				Action: withAuth(func(ctx context.Context, c *cli.Command, auth *usecase.AuthService) error {
					return runKeysList(ctx, auth, c.String("tenant"), c.Root().Writer)
				}),
			},
		},
	}
}

func withAuth(fn func(ctx context.Context, c *cli.Command, auth *usecase.AuthService) error) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		auth, closer, err := app.OpenAuthService(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer closer.Close()
		return fn(ctx, c, auth)
	}
}

func runKeysAdd(ctx context.Context, auth *usecase.AuthService, token, tenant, name string, w io.Writer) error {
	if err := auth.Register(ctx, token, tenant, name); err != nil {
		if errors.Is(err, usecase.ErrUnauthorized) {
			return cli.Exit("token must not be empty", 2)
		}
		if errors.Is(err, domain.ErrInvalidKey) {
			return cli.Exit(fmt.Sprintf("invalid tenant %q", tenant), 2)
		}
		return err
	}
	_, err := fmt.Fprintf(w, "registered key %q for tenant %s\n", name, tenant)
	return err
}

func runKeysRevoke(ctx context.Context, auth *usecase.AuthService, token string, w io.Writer) error {
	if err := auth.Revoke(ctx, token); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return cli.Exit("unknown key", 1)
		}
		return err
	}
	_, err := fmt.Fprintln(w, "key revoked")
	return err
}

func runKeysList(ctx context.Context, auth *usecase.AuthService, tenant string, w io.Writer) error {
	keys, err := auth.Keys(ctx, tenant)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidKey) {
			return cli.Exit(fmt.Sprintf("invalid tenant %q", tenant), 2)
		}
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tACTIVE\tCREATED\tLAST USED")
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n", k.Name, k.Active, k.CreatedAt.Format(time.RFC3339), formatOptionalTime(k.LastUsedAt))
	}
	return tw.Flush()
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
