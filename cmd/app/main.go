package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/perthro/internal"
	pkgconfig "github.com/starford/perthro/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfPresent(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func runExport(ctx context.Context, cmd *cli.Command) error {
	deckPath := cmd.Args().First()
	if deckPath == "" {
		return fmt.Errorf("usage: perthro export <deck-file.yaml>")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if out := cmd.String("output-dir"); out != "" {
		cfg.Export.OutputDir = out
	}
	return internal.RunExport(ctx, deckPath, cmd.Bool("watch"), internal.WithConfig(cfg))
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunServe(ctx, internal.WithConfig(cfg))
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:  "perthro",
		Usage: "Flashcard deck compiler that exports Anki-compatible .apkg packages",
		Commands: []*cli.Command{
			{
				Name:      "export",
				Usage:     "Export a deck file to an .apkg package",
				ArgsUsage: "<deck-file.yaml>",
				Action:    runExport,
				Flags: []cli.Flag{
					configFlag,
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "Re-export whenever the deck file changes",
					},
					&cli.StringFlag{
						Name:    "output-dir",
						Aliases: []string{"o"},
						Usage:   "Directory to write the package into",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Run the export HTTP API",
				Action: runServe,
				Flags:  []cli.Flag{configFlag},
			},
			{
				Name:   "mcp",
				Usage:  "Run the MCP server on stdio",
				Action: runMCP,
				Flags:  []cli.Flag{configFlag},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
