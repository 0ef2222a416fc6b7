package inventory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/martinsuchenak/hometier/internal/api"
	"github.com/martinsuchenak/hometier/internal/config"
	"github.com/martinsuchenak/hometier/internal/model"
	"github.com/martinsuchenak/hometier/internal/output"
	"github.com/paularlott/cli"
)

// Commands returns the inventory sub-commands
func Commands() []*cli.Command {
	return []*cli.Command{
		ListCommand(),
		ExportCommand(),
	}
}

// ListCommand lists inventory items with their warranty state
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:        "list",
		Usage:       "List inventory items",
		Description: "List inventory items with category and warranty status",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Usage: "Only show items in this category"},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			client, err := newClient(ctx, cmd)
			if err != nil {
				return err
			}

			items, err := client.ListInventory(ctx)
			if err != nil {
				return fmt.Errorf("listing inventory: %w", err)
			}

			now := time.Now()
			category := cmd.GetString("category")
			var rows [][]string
			for _, it := range items {
				if category != "" && it.CategoryLabel() != category {
					continue
				}
				rows = append(rows, []string{
					strconv.Itoa(it.ID),
					it.Name,
					it.CategoryLabel(),
					output.Dash(it.Brand),
					output.Dash(it.IPAddress),
					warranty(it, now),
				})
			}

			if len(rows) == 0 {
				fmt.Println("No inventory items found")
				return nil
			}
			return output.Table(os.Stdout, []string{"id", "name", "category", "brand", "ip", "warranty"}, rows)
		},
	}
}

// ExportCommand downloads an inventory export
func ExportCommand() *cli.Command {
	return &cli.Command{
		Name:        "export",
		Usage:       "Export the inventory",
		Description: "Download the inventory as csv, json or a text report",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Usage: "Export format: csv, json or report", DefaultValue: "csv"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file, - for stdout (default: server supplied name)"},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			client, err := newClient(ctx, cmd)
			if err != nil {
				return err
			}

			export, err := client.ExportInventory(ctx, cmd.GetString("format"))
			if err != nil {
				return fmt.Errorf("exporting inventory: %w", err)
			}

			path := cmd.GetString("output")
			if path == "-" {
				_, err := os.Stdout.Write(export.Data)
				return err
			}
			if path == "" {
				path = filepath.Base(export.Filename)
			}
			if err := os.WriteFile(path, export.Data, 0o644); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}
			fmt.Printf("Inventory exported to %s (%d bytes)\n", path, len(export.Data))
			return nil
		},
	}
}

func warranty(it model.InventoryItem, now time.Time) string {
	state, days := it.Warranty(now)
	switch state {
	case model.WarrantyExpired:
		return fmt.Sprintf("expired %dd ago", -days)
	case model.WarrantyExpiring:
		return fmt.Sprintf("expires in %dd", days)
	case model.WarrantyActive:
		return "active until " + output.Date(it.WarrantyExpiry)
	default:
		return "-"
	}
}

func newClient(ctx context.Context, cmd *cli.Command) (*api.Client, error) {
	cfg, err := config.FromCommand(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return api.NewClient(cfg.ServerURL, cfg.APIToken), nil
}
