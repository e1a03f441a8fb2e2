package workerpool

import (
	"context"
	"log/slog"
	"sync"
)

// Task is a unit of work run by the pool.
type Task func(ctx context.Context) error

// Pool runs tasks on a fixed number of goroutines.
type Pool struct {
	workerCount int
	taskQueue   chan Task
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	closed      bool
	closeMux    sync.Mutex
	logger      *slog.Logger
}

// New creates a pool bound to ctx. Cancelling ctx stops workers before their next task.
func New(ctx context.Context, workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	poolCtx, cancel := context.WithCancel(ctx)
	return &Pool{
		workerCount: workerCount,
		taskQueue:   make(chan Task, workerCount*2),
		ctx:         poolCtx,
		cancel:      cancel,
		logger:      slog.Default(),
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Debug("worker_pool_started", "workers", p.workerCount)
}

// Submit queues a task. It returns false if the pool is shutting down.
func (p *Pool) Submit(task Task) bool {
	p.closeMux.Lock()
	defer p.closeMux.Unlock()
	if p.closed {
		p.logger.Warn("worker_pool_task_rejected", "reason", "closed")
		return false
	}

	select {
	case p.taskQueue <- task:
		return true
	case <-p.ctx.Done():
		p.logger.Warn("worker_pool_task_rejected", "reason", "shutting_down")
		return false
	}
}

// Wait closes the queue and blocks until every queued task has run.
func (p *Pool) Wait() {
	p.closeMux.Lock()
	if !p.closed {
		close(p.taskQueue)
		p.closed = true
	}
	p.closeMux.Unlock()

	p.wg.Wait()
	p.cancel()
}

// Shutdown cancels the pool and waits for workers to exit.
func (p *Pool) Shutdown() {
	p.cancel()
	p.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for task := range p.taskQueue {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("worker_context_cancelled", "worker", id)
			return
		default:
		}

		if err := task(p.ctx); err != nil {
			p.logger.Warn("worker_task_failed", "worker", id, "error", err)
		}
	}
}
