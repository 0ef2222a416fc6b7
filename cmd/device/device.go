package device

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/martinsuchenak/hometier/internal/api"
	"github.com/martinsuchenak/hometier/internal/config"
	"github.com/martinsuchenak/hometier/internal/model"
	"github.com/martinsuchenak/hometier/internal/output"
	"github.com/paularlott/cli"
)

// Commands returns the device sub-commands
func Commands() []*cli.Command {
	return []*cli.Command{
		ListCommand(),
		IgnoreCommand(),
		UnignoreCommand(),
		TimelineCommand(),
	}
}

// ListCommand lists discovered devices with their liveness
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:        "list",
		Usage:       "List discovered devices",
		Description: "List every device the server has discovered, with its status derived from last_seen",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Usage: "Only show devices with this status (online, offline, unknown)"},
			&cli.BoolFlag{Name: "ignored", Usage: "Include ignored devices"},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			client, err := newClient(ctx, cmd)
			if err != nil {
				return err
			}

			devices, err := client.ListDevices(ctx)
			if err != nil {
				return fmt.Errorf("listing devices: %w", err)
			}

			now := time.Now()
			filter := model.Status(cmd.GetString("status"))
			var rows [][]string
			for _, d := range devices {
				status := d.Status(now)
				if filter != "" && status != filter {
					continue
				}
				if bool(d.IsIgnored) && !cmd.GetBool("ignored") {
					continue
				}
				rows = append(rows, []string{
					strconv.Itoa(d.ID),
					d.DisplayName(),
					output.Dash(d.IPAddress),
					output.Dash(d.MACAddress),
					output.Dash(d.Vendor),
					string(status),
					output.Timestamp(d.LastSeen),
				})
			}

			if len(rows) == 0 {
				fmt.Println("No devices found")
				return nil
			}
			return output.Table(os.Stdout, []string{"id", "name", "ip", "mac", "vendor", "status", "last seen"}, rows)
		},
	}
}

// IgnoreCommand hides a device from scanning results
func IgnoreCommand() *cli.Command {
	return &cli.Command{
		Name:        "ignore",
		Usage:       "Ignore a device",
		Description: "Mark a device as ignored so it no longer appears in scanning results",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id", Required: true},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			return toggleIgnore(ctx, cmd, true)
		},
	}
}

// UnignoreCommand restores an ignored device
func UnignoreCommand() *cli.Command {
	return &cli.Command{
		Name:        "unignore",
		Usage:       "Stop ignoring a device",
		Description: "Clear the ignored flag of a device",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id", Required: true},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			return toggleIgnore(ctx, cmd, false)
		},
	}
}

// TimelineCommand shows how many devices were first seen per day
func TimelineCommand() *cli.Command {
	return &cli.Command{
		Name:        "timeline",
		Usage:       "Show the device discovery timeline",
		Description: "Show the number of devices first seen on each of the last days",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "days", Usage: "Number of days to show", DefaultValue: 7},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			client, err := newClient(ctx, cmd)
			if err != nil {
				return err
			}

			points, err := client.DeviceTimeline(ctx, cmd.GetInt("days"))
			if err != nil {
				return fmt.Errorf("loading timeline: %w", err)
			}
			if len(points) == 0 {
				fmt.Println("No devices discovered in this period")
				return nil
			}

			rows := make([][]string, 0, len(points))
			for _, p := range points {
				rows = append(rows, []string{p.Date, strconv.Itoa(p.Count)})
			}
			return output.Table(os.Stdout, []string{"date", "devices"}, rows)
		},
	}
}

func toggleIgnore(ctx context.Context, cmd *cli.Command, ignore bool) error {
	id, err := strconv.Atoi(cmd.GetStringArg("id"))
	if err != nil {
		return fmt.Errorf("invalid device id %q", cmd.GetStringArg("id"))
	}

	client, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	if ignore {
		if err := client.IgnoreDevice(ctx, id); err != nil {
			return fmt.Errorf("ignoring device %d: %w", id, err)
		}
		fmt.Printf("Device %d ignored\n", id)
		return nil
	}

	if err := client.UnignoreDevice(ctx, id); err != nil {
		return fmt.Errorf("unignoring device %d: %w", id, err)
	}
	fmt.Printf("Device %d unignored\n", id)
	return nil
}

func newClient(ctx context.Context, cmd *cli.Command) (*api.Client, error) {
	cfg, err := config.FromCommand(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return api.NewClient(cfg.ServerURL, cfg.APIToken), nil
}
