package main

import (
	"context"
	"os"

	"github.com/martinsuchenak/hometier/cmd/category"
	"github.com/martinsuchenak/hometier/cmd/device"
	"github.com/martinsuchenak/hometier/cmd/inventory"
	"github.com/martinsuchenak/hometier/cmd/live"
	"github.com/martinsuchenak/hometier/cmd/scan"
	"github.com/martinsuchenak/hometier/internal/config"
	"github.com/martinsuchenak/hometier/internal/log"
	"github.com/paularlott/cli"
	"github.com/paularlott/cli/env"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Load .env file if it exists
	env.Load()

	log.Configure("info", "console")

	rootCmd := &cli.Command{
		Name:        "hometier",
		Version:     version,
		Usage:       "Live terminal dashboard for a HomeTier server",
		Description: "Follow device status, network scans and inventory changes of a HomeTier home network server",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:         "log-level",
				Usage:        "Log level (trace, debug, info, warn, error)",
				DefaultValue: "info",
				EnvVars:      []string{"HT_LOG_LEVEL"},
				Global:       true,
			},
			&cli.StringFlag{
				Name:         "log-format",
				Usage:        "Log format (console, json)",
				DefaultValue: "console",
				EnvVars:      []string{"HT_LOG_FORMAT"},
				Global:       true,
			},
		}, config.GetFlags()...),
		PreRun: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			log.Configure(cmd.GetString("log-level"), cmd.GetString("log-format"))
			log.Trace("Starting hometier", "version", version, "commit", commit, "date", date)
			return ctx, nil
		},
		Commands: append(live.Commands(),
			scan.Command(),
			&cli.Command{
				Name:        "device",
				Usage:       "Device commands",
				Description: "List discovered devices and manage their ignored flag",
				Commands:    device.Commands(),
			},
			&cli.Command{
				Name:        "inventory",
				Usage:       "Inventory commands",
				Description: "List and export the inventory",
				Commands:    inventory.Commands(),
			},
			&cli.Command{
				Name:        "category",
				Usage:       "Category commands",
				Description: "List inventory categories",
				Commands:    category.Commands(),
			},
		),
	}

	if err := rootCmd.Execute(context.Background()); err != nil {
		log.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
