// Package realtime keeps one persistent Socket.IO channel to the HomeTier server,
// reconnecting with bounded exponential backoff and dispatching typed events.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/martinsuchenak/hometier/internal/log"
)

const (
	DefaultBaseDelay         = time.Second
	DefaultMaxAttempts       = 5
	DefaultHeartbeatInterval = 30 * time.Second
)

// Handler receives events and state transitions. Calls arrive from the client's
// goroutine in arrival order and must not block for long.
type Handler interface {
	HandleEvent(ctx context.Context, ev Event)
	ConnectionChanged(state State)
}

// ScanFallback triggers a scan over HTTP when the channel is down
type ScanFallback interface {
	TriggerScan(ctx context.Context) (string, error)
}

type Options struct {
	BaseDelay         time.Duration
	MaxAttempts       int
	HeartbeatInterval time.Duration
	Fallback          ScanFallback
}

// Client is the realtime channel. Run drives it; the other methods are safe for
// concurrent use.
type Client struct {
	dialer  Dialer
	handler Handler
	opts    Options

	mu       sync.Mutex
	conn     Conn
	state    State
	backoff  Backoff
	stopped  bool
	stop     chan struct{}
	stopOnce sync.Once

	// wait blocks for d or until ctx ends; replaced in tests
	wait func(ctx context.Context, d time.Duration) error
}

func New(dialer Dialer, handler Handler, opts Options) *Client {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}

	return &Client{
		dialer:  dialer,
		handler: handler,
		opts:    opts,
		state:   StateConnecting,
		backoff: Backoff{Base: opts.BaseDelay, MaxAttempts: opts.MaxAttempts},
		stop:    make(chan struct{}),
		wait:    sleep,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// State returns the current connection state
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run connects and keeps the channel alive until Disconnect is called, ctx ends, or
// reconnect attempts run out (ErrReconnectExhausted).
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		if c.isStopped() || ctx.Err() != nil {
			c.setState(StateDisconnected)
			return nil
		}

		c.setState(StateConnecting)
		conn, err := c.dialer.Dial(ctx)
		if err != nil {
			if c.isStopped() || ctx.Err() != nil {
				c.setState(StateDisconnected)
				return nil
			}
			log.Warn("realtime connection failed", "error", err)
			c.setState(StateError)
		} else {
			err = c.serve(ctx, conn)
			if c.isStopped() || ctx.Err() != nil {
				c.setState(StateDisconnected)
				return nil
			}
			log.Info("realtime channel disconnected", "reason", err)
			c.setState(StateDisconnected)
		}

		delay, ok := c.nextDelay()
		if !ok {
			log.Error("max reconnection attempts reached", "attempts", c.opts.MaxAttempts)
			c.setState(StateError)
			return ErrReconnectExhausted
		}
		log.Info("reconnecting", "delay", delay, "attempt", c.attempts())

		if err := c.wait(ctx, delay); err != nil {
			c.setState(StateDisconnected)
			return nil
		}
	}
}

// serve runs one connected session until the connection ends
func (c *Client) serve(ctx context.Context, conn Conn) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.backoff.Reset()
	c.mu.Unlock()

	c.setState(StateConnected)
	log.Info("realtime channel connected")

	if err := c.Emit(EmitRequestDeviceStatus, nil); err != nil {
		log.Warn("requesting device status failed", "error", err)
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.heartbeat(hbCtx)
	}()

	// Unblock Next on teardown
	go func() {
		<-hbCtx.Done()
		conn.Close()
	}()

	err := c.readLoop(ctx, conn)

	stopHeartbeat()
	wg.Wait()

	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
	conn.Close()
	return err
}

func (c *Client) readLoop(ctx context.Context, conn Conn) error {
	for {
		msg, err := conn.Next()
		if err != nil {
			return err
		}

		ev, err := DecodeEvent(msg.Name, msg.Data)
		if err != nil {
			if errors.Is(err, ErrUnknownEvent) {
				log.Debug("ignoring unknown event", "event", msg.Name)
			} else {
				log.Warn("skipping malformed event", "event", msg.Name, "error", err)
			}
			continue
		}

		if hello, ok := ev.(ServerHello); ok {
			log.Info("server greeting", "message", hello.Message)
		}
		c.dispatch(ctx, ev)
	}
}

func (c *Client) dispatch(ctx context.Context, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("event handler panicked", "event", ev.EventName(), "panic", r)
		}
	}()
	if c.isStopped() {
		return
	}
	c.handler.HandleEvent(ctx, ev)
}

func (c *Client) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(c.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Emit(EmitPing, nil); err != nil {
				log.Debug("heartbeat failed", "error", err)
			}
		}
	}
}

// Emit sends an event on the live channel
func (c *Client) Emit(name string, payload any) error {
	c.mu.Lock()
	conn := c.conn
	stopped := c.stopped
	c.mu.Unlock()

	if conn == nil || stopped {
		return ErrNotConnected
	}
	if err := conn.Emit(name, payload); err != nil {
		return fmt.Errorf("emit %s: %w", name, err)
	}
	return nil
}

// RequestScan asks the server to start a network scan over the channel, or through
// the HTTP fallback when the channel is down. fallback reports which path was used.
func (c *Client) RequestScan(ctx context.Context) (fallback bool, err error) {
	err = c.Emit(EmitStartNetworkScan, nil)
	if err == nil {
		return false, nil
	}
	if c.opts.Fallback == nil {
		return false, err
	}

	log.Warn("realtime channel unavailable, using HTTP scan", "error", err)
	if _, err := c.opts.Fallback.TriggerScan(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// Disconnect tears the channel down for good: the heartbeat stops, any pending
// reconnect wait is abandoned, and no further events are emitted or dispatched.
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.stopped = true
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()

		close(c.stop)
		if conn != nil {
			conn.Close()
		}
		log.Info("realtime channel closed by client")
	})
}

func (c *Client) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

func (c *Client) nextDelay() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backoff.Next()
}

func (c *Client) attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backoff.Attempts()
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()

	log.Debug("realtime state", "state", s.String())
	c.handler.ConnectionChanged(s)
}
