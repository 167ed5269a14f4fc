package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/atvirokodosprendimai/entitygen/internal/adapters/yamlsrc"
	"github.com/atvirokodosprendimai/entitygen/internal/app"
	"github.com/atvirokodosprendimai/entitygen/internal/core/usecase"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate an entity definition and print its view-model",
		ArgsUsage: "FILE|-",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "format",
				Usage: "Input format: json or yaml (default: from the file extension, json for stdin)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return cli.Exit("validate expects exactly one FILE or -", 2)
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			name := c.Args().First()
			var in io.Reader = os.Stdin
			if name != "-" {
				f, err := os.Open(name)
				if err != nil {
					return fmt.Errorf("open input: %w", err)
				}
				defer f.Close()
				in = f
			}

			format := c.String("format")
			if format == "" {
				format = formatFromName(name)
			}
			return runValidate(ctx, cfg, in, format, c.Root().Writer, c.Root().ErrWriter)
		},
	}
}

func formatFromName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return formatYAML
	default:
		return formatJSON
	}
}

// runValidate prints the view-model on success. On failure it prints the
// error messages and returns an error unless raising is disabled.
func runValidate(ctx context.Context, cfg app.Config, in io.Reader, format string, stdout, stderr io.Writer) error {
	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	switch format {
	case formatJSON:
	case formatYAML:
		raw, err = yamlsrc.ToJSON(raw)
		if err != nil {
			return fmt.Errorf("convert yaml: %w", err)
		}
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	validator, err := app.NewSchemaValidator(cfg)
	if err != nil {
		return err
	}
	service := usecase.NewEntityGenService(validator)
	c := service.Validate(ctx, raw)

	if c.Success() {
		out, err := json.MarshalIndent(c.Resource(), "", "  ")
		if err != nil {
			return fmt.Errorf("encode view-model: %w", err)
		}
		_, err = fmt.Fprintln(stdout, string(out))
		return err
	}

	for _, msg := range c.Messages() {
		fmt.Fprintln(stderr, msg)
	}
	if err := service.Raise(c); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}
