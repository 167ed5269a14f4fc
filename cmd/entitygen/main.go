package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/atvirokodosprendimai/entitygen/internal/app"
)

func main() {
	cmd := &cli.Command{
		Name:  "entitygen",
		Usage: "Validate entity definitions and hand view-models to code generation",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Sources: cli.EnvVars("ENTITYGEN_CONFIG"),
				Usage:   "Optional YAML config file",
			},
			&cli.BoolFlag{
				Name:  "raise-on-failure",
				Value: true,
				Usage: "Exit non-zero when validation fails",
			},
			&cli.BoolFlag{
				Name:  "enum-messages",
				Usage: "List allowed values in enum error messages",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			validateCommand(),
			keysCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadConfig layers defaults, the config file, ENTITYGEN_* variables and
// explicitly set flags, in that order.
func loadConfig(c *cli.Command) (app.Config, error) {
	cfg, err := app.LoadConfig(c.String("config"), app.DefaultConfig())
	if err != nil {
		return cfg, err
	}
	if c.IsSet("raise-on-failure") {
		cfg.RaiseOnFailure = c.Bool("raise-on-failure")
	}
	if c.IsSet("enum-messages") {
		cfg.EnumMessages = c.Bool("enum-messages")
	}
	if c.IsSet("addr") {
		cfg.Addr = c.String("addr")
	}
	if c.IsSet("db-path") {
		cfg.DBPath = c.String("db-path")
	}
	if c.IsSet("bootstrap-api-key") {
		cfg.BootstrapAPIKey = c.String("bootstrap-api-key")
	}
	if c.IsSet("bootstrap-tenant") {
		cfg.BootstrapTenant = c.String("bootstrap-tenant")
	}
	if c.IsSet("bootstrap-key-name") {
		cfg.BootstrapKeyName = c.String("bootstrap-key-name")
	}
	if c.IsSet("webhook-url") {
		cfg.WebhookURL = c.String("webhook-url")
	}
	if c.IsSet("webhook-secret") {
		cfg.WebhookSecret = c.String("webhook-secret")
	}
	return cfg, cfg.Validate()
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: ":8080",
				Usage: "HTTP listen address",
			},
			&cli.StringFlag{
				Name:  "db-path",
				Value: "./entitygen.sqlite",
				Usage: "SQLite file path",
			},
			&cli.StringFlag{
				Name:    "bootstrap-api-key",
				Sources: cli.EnvVars("ENTITYGEN_BOOTSTRAP_API_KEY"),
				Usage:   "Optional API key to upsert at startup",
			},
			&cli.StringFlag{
				Name:    "bootstrap-tenant",
				Value:   "default",
				Sources: cli.EnvVars("ENTITYGEN_BOOTSTRAP_TENANT"),
				Usage:   "Tenant for bootstrap API key",
			},
			&cli.StringFlag{
				Name:    "bootstrap-key-name",
				Value:   "bootstrap",
				Sources: cli.EnvVars("ENTITYGEN_BOOTSTRAP_KEY_NAME"),
				Usage:   "Name for bootstrap API key",
			},
			&cli.StringFlag{
				Name:    "webhook-url",
				Sources: cli.EnvVars("ENTITYGEN_WEBHOOK_URL"),
				Usage:   "Generation event webhook target URL",
			},
			&cli.StringFlag{
				Name:    "webhook-secret",
				Sources: cli.EnvVars("ENTITYGEN_WEBHOOK_SECRET"),
				Usage:   "HMAC-SHA256 signing secret for outbound webhook requests",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			server, closer, err := app.NewServer(ctx, cfg)
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}
			defer func() {
				if closeErr := closer.Close(); closeErr != nil {
					log.Printf("close resources: %v", closeErr)
				}
			}()

			errCh := make(chan error, 1)
			go func() {
				log.Printf("listening on %s", cfg.Addr)
				errCh <- server.ListenAndServe()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			case sig := <-sigCh:
				log.Printf("received signal %s", sig)
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}
}
