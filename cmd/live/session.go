package live

import (
	"context"
	"errors"

	"github.com/martinsuchenak/hometier/internal/api"
	"github.com/martinsuchenak/hometier/internal/config"
	"github.com/martinsuchenak/hometier/internal/dashboard"
	"github.com/martinsuchenak/hometier/internal/log"
	"github.com/martinsuchenak/hometier/internal/realtime"
	"github.com/martinsuchenak/hometier/internal/ui"
	"github.com/martinsuchenak/hometier/internal/worker"
)

const (
	fetchWorkers   = 4
	autoRefreshJob = "auto-refresh"
)

// session wires the page, the controller and the realtime channel for one run
type session struct {
	page      *ui.Page
	loop      *worker.Loop
	pool      *worker.Pool
	scheduler *worker.Scheduler
	ctrl      *dashboard.Controller
	rt        *realtime.Client

	done chan struct{}
}

func newSession(cfg *config.Config) (*session, error) {
	client := api.NewClient(cfg.ServerURL, cfg.APIToken)
	page := ui.NewPage(ui.View(cfg.View))
	loop := worker.NewLoop()
	pool := worker.NewPool(fetchWorkers)

	ctrl := dashboard.New(client, page, loop, pool, dashboard.Options{})
	rt := realtime.New(realtime.NewSocketIODialer(cfg.ServerURL, cfg.APIToken), ctrl, realtime.Options{
		BaseDelay:         cfg.ReconnectBaseDelay,
		MaxAttempts:       cfg.MaxReconnectAttempts,
		HeartbeatInterval: cfg.HeartbeatInterval,
		Fallback:          client,
	})
	ctrl.Attach(rt)

	scheduler := worker.NewScheduler()
	if cfg.RefreshSchedule != "" {
		if err := scheduler.Register(autoRefreshJob, cfg.RefreshSchedule, ctrl.AutoRefresh); err != nil {
			return nil, err
		}
	}

	return &session{
		page:      page,
		loop:      loop,
		pool:      pool,
		scheduler: scheduler,
		ctrl:      ctrl,
		rt:        rt,
		done:      make(chan struct{}),
	}, nil
}

// start launches the workers, the initial load and the realtime channel
func (s *session) start(ctx context.Context) {
	s.loop.Start()
	s.pool.Start()
	s.scheduler.Start()
	s.ctrl.Start()

	go func() {
		defer close(s.done)
		err := s.rt.Run(ctx)
		switch {
		case errors.Is(err, realtime.ErrReconnectExhausted):
			log.Warn("Realtime channel offline, continuing with scheduled refresh only")
		case err != nil:
			log.Error("Realtime channel failed", "error", err)
		}
	}()
}

// stop disconnects and drains everything started by start
func (s *session) stop() {
	s.rt.Disconnect()
	<-s.done
	s.scheduler.Stop()
	s.pool.Stop()
	s.loop.Stop()
}
