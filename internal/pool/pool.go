// Package pool provides the fixed-size worker pool that executes volley jobs.
//
// A [Pool] runs a fixed number of worker goroutines that consume a single
// shared FIFO queue. The queue is unbounded: [Pool.Submit] never blocks and
// never drops work, so the pool size is the only admission control and at
// most Size tasks execute at once.
package pool

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
)

// ErrPoolClosed is returned by [Pool.Submit] after [Pool.Shutdown] or [Pool.Stop].
var ErrPoolClosed = errors.New("pool closed")

// ErrNilTask is returned by [Pool.Submit] when the task is nil.
var ErrNilTask = errors.New("nil task")

// Task is a unit of work executed by a pool worker.
//
// Tasks report their own results; the pool only guarantees that each
// dequeued task runs exactly once. A panicking task is recovered and logged,
// and the worker moves on to the next task.
type Task func()

// Pool is a fixed set of workers sharing one job queue.
//
// All methods are safe for concurrent use.
type Pool struct {
	size   int
	logger *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Task
	closed  bool
	running int

	wg sync.WaitGroup
}

// New creates a pool with size workers and starts them.
//
// size is clamped to at least 1, so New(0) behaves exactly like New(1).
// If logger is nil, slog.Default() is used.
func New(size int, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pool{
		size:   size,
		logger: logger,
	}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Submit appends a task to the queue and wakes one idle worker.
//
// Submit never blocks on queue capacity. It returns [ErrPoolClosed] once the
// pool has been shut down or stopped.
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return ErrNilTask
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	p.queue = append(p.queue, task)
	p.cond.Signal()
	return nil
}

// Pending returns the number of queued tasks that no worker has picked up yet.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Running returns the number of tasks currently executing.
func (p *Pool) Running() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Shutdown stops accepting new tasks, lets the workers drain every task
// already in the queue, and blocks until all workers have exited.
//
// No queued or in-flight task is abandoned. Shutdown is idempotent.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()
}

// Stop stops accepting new tasks and discards every task still waiting in
// the queue. It returns the number of discarded tasks.
//
// Stop does not wait: tasks that a worker already picked up keep running
// and the workers exit when they finish. Stop is idempotent; later calls
// return 0.
func (p *Pool) Stop() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	dropped := len(p.queue)
	clear(p.queue)
	p.queue = nil
	p.cond.Broadcast()

	if dropped > 0 {
		p.logger.Debug("discarded queued tasks", "count", dropped)
	}
	return dropped
}

// worker pulls tasks until the pool is closed and the queue is empty.
func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}

		task := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.running++
		p.mu.Unlock()

		p.runSafe(task)

		p.mu.Lock()
		p.running--
		p.mu.Unlock()
	}
}

// runSafe executes a task with panic recovery.
// A panic is logged with its stack and a correlation ID; the worker survives.
func (p *Pool) runSafe(task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panic",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	task()
}
