package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/martinsuchenak/hometier/internal/api"
	"github.com/martinsuchenak/hometier/internal/config"
	"github.com/martinsuchenak/hometier/internal/log"
	"github.com/martinsuchenak/hometier/internal/realtime"
	"github.com/paularlott/cli"
)

const connectTimeout = 10 * time.Second

// Command returns the scan command
func Command() *cli.Command {
	return &cli.Command{
		Name:        "scan",
		Usage:       "Start a network scan",
		Description: "Start a network scan over the realtime channel, falling back to the HTTP API, and follow its progress",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-wait", Usage: "Return as soon as the scan has started"},
			&cli.IntFlag{Name: "timeout", Usage: "Seconds to wait for the scan to finish", DefaultValue: 600},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.FromCommand(ctx, cmd)
			if err != nil {
				return err
			}

			client := api.NewClient(cfg.ServerURL, cfg.APIToken)
			follower := newFollower()
			rt := realtime.New(realtime.NewSocketIODialer(cfg.ServerURL, cfg.APIToken), follower, realtime.Options{
				BaseDelay:         cfg.ReconnectBaseDelay,
				MaxAttempts:       1,
				HeartbeatInterval: cfg.HeartbeatInterval,
				Fallback:          client,
			})

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			go func() {
				if err := rt.Run(runCtx); err != nil && !errors.Is(err, realtime.ErrReconnectExhausted) {
					log.Debug("Realtime channel stopped", "error", err)
				}
			}()
			defer rt.Disconnect()

			select {
			case <-follower.settled:
			case <-time.After(connectTimeout):
			case <-ctx.Done():
				return ctx.Err()
			}

			fallback, err := rt.RequestScan(ctx)
			if fallback {
				fmt.Println("Not connected to real-time server. Using fallback scan.")
			}
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}
			if fallback {
				fmt.Println("Network scan started. Results will appear after the next refresh.")
				return nil
			}
			if cmd.GetBool("no-wait") {
				fmt.Println("Network scan started")
				return nil
			}

			return follower.wait(ctx, time.Duration(cmd.GetInt("timeout"))*time.Second)
		},
	}
}

// follower prints scan events until the scan finishes
type follower struct {
	once    sync.Once
	settled chan struct{}
	done    chan error
}

func newFollower() *follower {
	return &follower{
		settled: make(chan struct{}),
		done:    make(chan error, 1),
	}
}

func (f *follower) ConnectionChanged(state realtime.State) {
	log.Debug("Realtime state", "state", state)
	if state == realtime.StateConnected || state == realtime.StateError {
		f.once.Do(func() { close(f.settled) })
	}
}

func (f *follower) HandleEvent(ctx context.Context, ev realtime.Event) {
	switch e := ev.(type) {
	case realtime.ScanStarted:
		fmt.Println("Network scan started")
	case realtime.ScanProgress:
		if e.Message != "" {
			fmt.Printf("[%3.0f%%] %s\n", e.Percent(), e.Message)
		} else {
			fmt.Printf("[%3.0f%%]\n", e.Percent())
		}
	case realtime.NewDevicesDiscovered:
		for _, d := range e.Devices {
			fmt.Printf("  [+] %s\n", d.DisplayName())
		}
	case realtime.ScanCompleted:
		fmt.Printf("Scan completed! Found %d devices.\n", e.DevicesFound)
		f.finish(nil)
	case realtime.ScanError:
		f.finish(fmt.Errorf("scan failed: %s", e.Message))
	}
}

func (f *follower) finish(err error) {
	select {
	case f.done <- err:
	default:
	}
}

func (f *follower) wait(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-f.done:
		return err
	case <-timer.C:
		return fmt.Errorf("scan did not finish within %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
