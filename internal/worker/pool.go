package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/martinsuchenak/hometier/internal/log"
)

var ErrPoolStopped = errors.New("worker pool stopped")

// Pool runs background fetches off the UI loop with a fixed number of workers
type Pool struct {
	size    int
	jobs    chan Job
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	idle    *sync.Cond
	pending int
	started bool
}

// Job is one unit of background work
type Job struct {
	Name string
	Run  func(ctx context.Context)
}

// NewPool creates a pool with size workers
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		size:   size,
		jobs:   make(chan Job, 64),
		ctx:    ctx,
		cancel: cancel,
	}
	p.idle = sync.NewCond(&p.mu)
	return p
}

// Start starts the workers
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	log.Debug("Worker pool started", "workers", p.size)
}

// Stop cancels running jobs and waits for the workers to exit
func (p *Pool) Stop() {
	p.cancel()
	p.wg.Wait()

	p.mu.Lock()
	p.idle.Broadcast()
	p.mu.Unlock()
}

// Submit queues a job, blocking while the queue is full
func (p *Pool) Submit(job Job) error {
	if p.ctx.Err() != nil {
		return ErrPoolStopped
	}
	p.track(1)
	select {
	case p.jobs <- job:
		return nil
	case <-p.ctx.Done():
		p.track(-1)
		return ErrPoolStopped
	}
}

func (p *Pool) track(delta int) {
	p.mu.Lock()
	p.pending += delta
	if p.pending == 0 {
		p.idle.Broadcast()
	}
	p.mu.Unlock()
}

// Wait blocks until every submitted job has finished
func (p *Pool) Wait() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.pending > 0 && p.ctx.Err() == nil {
		p.idle.Wait()
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job := <-p.jobs:
			log.Trace("Worker executing job", "worker_id", id, "job", job.Name)
			p.run(job)
		}
	}
}

func (p *Pool) run(job Job) {
	defer p.track(-1)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Job panicked", "job", job.Name, "panic", r)
		}
	}()
	job.Run(p.ctx)
}
