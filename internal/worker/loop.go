package worker

import (
	"context"
	"sync"
	"time"

	"github.com/martinsuchenak/hometier/internal/log"
)

// Loop runs posted functions one at a time, strictly in the order they were posted.
// Everything that touches view state goes through it.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	timers  map[*time.Timer]struct{}
	running bool

	wake   chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewLoop creates a stopped loop
func NewLoop() *Loop {
	ctx, cancel := context.WithCancel(context.Background())
	return &Loop{
		timers: make(map[*time.Timer]struct{}),
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start starts the loop goroutine
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running || l.ctx.Err() != nil {
		return
	}
	l.running = true

	l.wg.Add(1)
	go l.run()
	log.Debug("UI loop started")
}

// Stop cancels pending timers, drops queued work and waits for the running function
func (l *Loop) Stop() {
	l.mu.Lock()
	for t := range l.timers {
		t.Stop()
	}
	l.timers = make(map[*time.Timer]struct{})
	l.queue = nil
	l.running = false
	l.mu.Unlock()

	l.cancel()
	l.wg.Wait()
}

// Post queues fn; it returns false once the loop has been stopped
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.ctx.Err() != nil {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// AfterFunc posts fn to the loop after d. The returned function cancels it.
func (l *Loop) AfterFunc(d time.Duration, fn func()) (cancel func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ctx.Err() != nil {
		return func() {}
	}

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		l.mu.Lock()
		_, live := l.timers[t]
		delete(l.timers, t)
		l.mu.Unlock()
		if live {
			l.Post(fn)
		}
	})
	l.timers[t] = struct{}{}

	return func() {
		l.mu.Lock()
		delete(l.timers, t)
		l.mu.Unlock()
		t.Stop()
	}
}

// Pending is the number of armed timers
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers)
}

// Flush blocks until everything posted before the call has run
func (l *Loop) Flush() {
	done := make(chan struct{})
	if !l.Post(func() { close(done) }) {
		return
	}
	select {
	case <-done:
	case <-l.ctx.Done():
	}
}

func (l *Loop) run() {
	defer l.wg.Done()

	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			if l.ctx.Err() != nil {
				return
			}
			l.exec(fn)
		}

		if len(batch) > 0 {
			continue
		}

		select {
		case <-l.ctx.Done():
			return
		case <-l.wake:
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("UI loop task panicked", "panic", r)
		}
	}()
	fn()
}
