package pool

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("pool")

// ErrPoolClosed is returned by Submit after Close was called
var ErrPoolClosed = errors.New("pool: worker pool is closed")

// Task is a unit of work executed by one worker
type Task func()

// worker is one long-lived goroutine of the pool
type worker struct {
	id   int
	done chan struct{} // closed when the goroutine returned
}

// WorkerPool runs submitted tasks on a fixed number of goroutines.
//
// The task queue is unbounded: Submit never blocks and never rejects work
// while the pool is open. A task that panics terminates the worker running it;
// the pool keeps going with one worker less. The number of surviving workers
// and the queue depth are exported as metrics.
type WorkerPool struct {
	queue   *Queue[Task]
	workers []*worker

	alive   atomic.Int64
	pending atomic.Int64

	closeOnce sync.Once

	set       *metrics.Set
	submitted *metrics.Counter
	completed *metrics.Counter
	panics    *metrics.Counter
	dropped   *metrics.Counter
}

// New starts a pool with size workers. It panics if size is smaller than 1.
func New(size int) *WorkerPool {
	if size < 1 {
		panic(fmt.Sprintf("pool: size must be at least 1, got %d", size))
	}

	p := &WorkerPool{
		queue:   NewQueue[Task](),
		workers: make([]*worker, 0, size),
		set:     metrics.NewSet(),
	}

	p.submitted = p.set.NewCounter("rkv_pool_tasks_submitted_total")
	p.completed = p.set.NewCounter("rkv_pool_tasks_completed_total")
	p.panics = p.set.NewCounter("rkv_pool_worker_panics_total")
	p.dropped = p.set.NewCounter("rkv_pool_tasks_dropped_total")
	p.set.NewGauge("rkv_pool_queue_depth", func() float64 {
		return float64(p.pending.Load())
	})
	p.set.NewGauge("rkv_pool_workers_alive", func() float64 {
		return float64(p.alive.Load())
	})
	p.set.NewGauge("rkv_pool_workers", func() float64 {
		return float64(size)
	})

	for id := 0; id < size; id++ {
		w := &worker{id: id, done: make(chan struct{})}
		p.workers = append(p.workers, w)
		p.alive.Add(1)
		go p.run(w)
	}

	Logger.Debugf("started worker pool with %d workers", size)
	return p
}

// --------------------------------------------------------------------------
// Public API
// --------------------------------------------------------------------------

// Submit enqueues task for execution by the next idle worker.
// It returns ErrPoolClosed once Close has been called.
func (p *WorkerPool) Submit(task Task) error {
	if task == nil {
		return errors.New("pool: nil task")
	}

	p.pending.Add(1)
	if !p.queue.Push(task) {
		p.pending.Add(-1)
		return ErrPoolClosed
	}
	p.submitted.Inc()
	return nil
}

// Close shuts the pool down gracefully. It stops accepting tasks, lets the
// workers finish everything already queued and waits for every worker to
// return. Calling Close more than once is a no-op.
//
// If all workers died from panics, the remaining queued tasks can not run;
// they are discarded and counted.
func (p *WorkerPool) Close() {
	p.closeOnce.Do(func() {
		Logger.Infof("closing worker pool (pending tasks: %d)", p.pending.Load())
		p.queue.Close()

		for _, w := range p.workers {
			Logger.Debugf("shutting down worker %d", w.id)
			<-w.done
		}

		// workers only stop early by panicking, nothing reads the queue anymore
		dropped := 0
		for range p.queue.Recv() {
			p.pending.Add(-1)
			p.dropped.Inc()
			dropped++
		}
		if dropped > 0 {
			Logger.Errorf("worker pool closed with no workers left, dropped %d tasks", dropped)
		}
		Logger.Infof("worker pool closed")
	})
}

// Size returns the number of workers the pool was started with
func (p *WorkerPool) Size() int {
	return len(p.workers)
}

// AliveWorkers returns the number of workers that have not died from a panic
// (or exited after Close)
func (p *WorkerPool) AliveWorkers() int {
	return int(p.alive.Load())
}

// Pending returns the number of submitted tasks that no worker has picked up yet
func (p *WorkerPool) Pending() int {
	return int(p.pending.Load())
}

// Metrics returns the metric set of this pool
func (p *WorkerPool) Metrics() *metrics.Set {
	return p.set
}

// --------------------------------------------------------------------------
// Worker
// --------------------------------------------------------------------------

func (p *WorkerPool) run(w *worker) {
	defer close(w.done)
	defer p.alive.Add(-1)

	for task := range p.queue.Recv() {
		p.pending.Add(-1)
		Logger.Debugf("worker %d got a task; executing", w.id)
		if !p.execute(w, task) {
			return
		}
	}
	Logger.Debugf("worker %d: queue closed, exiting", w.id)
}

// execute runs task and reports false if it panicked
func (p *WorkerPool) execute(w *worker, task Task) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.panics.Inc()
			Logger.Errorf("worker %d: task panicked, worker exits (alive: %d of %d): %v\n%s",
				w.id, p.alive.Load()-1, len(p.workers), r, debug.Stack())
			ok = false
		}
	}()

	task()
	p.completed.Inc()
	return true
}
