package live

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/martinsuchenak/hometier/internal/config"
	"github.com/martinsuchenak/hometier/internal/log"
	"github.com/martinsuchenak/hometier/internal/ui"
	"github.com/paularlott/cli"
	"golang.org/x/term"
)

const watchInterval = time.Second

// Commands returns the realtime commands
func Commands() []*cli.Command {
	return []*cli.Command{
		LiveCommand(),
		WatchCommand(),
	}
}

// LiveCommand runs the full screen dashboard
func LiveCommand() *cli.Command {
	return &cli.Command{
		Name:        "live",
		Usage:       "Run the live terminal dashboard",
		Description: "Show the dashboard full screen, updated from the realtime channel",
		Flags:       config.GetLiveFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.LiveFromCommand(ctx, cmd)
			if err != nil {
				return err
			}

			if !term.IsTerminal(int(os.Stdout.Fd())) {
				log.Info("Standard output is not a terminal, running headless")
				return watch(ctx, cfg)
			}

			closeLog, err := redirectLog(cfg, cmd.GetString("log-level"), cmd.GetString("log-format"))
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := newSession(cfg)
			if err != nil {
				return err
			}
			s.start(ctx)
			defer s.stop()

			return ui.Run(ctx, s.page, s.ctrl)
		},
	}
}

// WatchCommand follows the realtime channel without a screen
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:        "watch",
		Usage:       "Follow realtime events headless",
		Description: "Keep the dashboard state current and log every notification and connection change",
		Flags:       config.GetLiveFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.LiveFromCommand(ctx, cmd)
			if err != nil {
				return err
			}
			return watch(ctx, cfg)
		},
	}
}

func watch(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newSession(cfg)
	if err != nil {
		return err
	}
	log.Info("Watching HomeTier server", "server", cfg.ServerURL, "view", cfg.View, "config", cfg.String())
	s.start(ctx)
	defer s.stop()

	w := newWatcher(s.page)
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopped watching")
			return nil
		case <-ticker.C:
			w.poll()
		}
	}
}

// redirectLog sends log output to the configured file, or drops it, while the
// dashboard owns the screen
func redirectLog(cfg *config.Config, level, format string) (func(), error) {
	if cfg.LogFile == "" {
		log.Discard()
		return func() {}, nil
	}

	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	log.ConfigureWriter(level, format, f)
	return func() {
		log.Configure(level, format)
		f.Close()
	}, nil
}
