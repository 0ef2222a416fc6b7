package category

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/martinsuchenak/hometier/internal/api"
	"github.com/martinsuchenak/hometier/internal/config"
	"github.com/martinsuchenak/hometier/internal/output"
	"github.com/paularlott/cli"
)

// Commands returns the category sub-commands
func Commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:        "list",
			Usage:       "List inventory categories",
			Description: "List the categories inventory items are grouped by",
			Run: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := config.FromCommand(ctx, cmd)
				if err != nil {
					return err
				}

				categories, err := api.NewClient(cfg.ServerURL, cfg.APIToken).ListCategories(ctx)
				if err != nil {
					return fmt.Errorf("listing categories: %w", err)
				}
				if len(categories) == 0 {
					fmt.Println("No categories found")
					return nil
				}

				rows := make([][]string, 0, len(categories))
				for _, c := range categories {
					rows = append(rows, []string{strconv.Itoa(c.ID), c.Name, output.Dash(c.Description)})
				}
				return output.Table(os.Stdout, []string{"id", "name", "description"}, rows)
			},
		},
	}
}
