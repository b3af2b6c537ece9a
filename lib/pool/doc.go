// Package pool provides a fixed-size worker pool on top of an unbounded task queue.
//
// Lifecycle:
//
//   - New(n) starts n long-lived worker goroutines that all receive from the
//     same queue.
//   - Submit(task) enqueues a task. It never blocks; there is no backpressure.
//   - Close() closes the producer side of the queue. Workers finish all tasks
//     that were already queued, see the queue end and return. Close waits for
//     every worker before it returns.
//
// Failure model: a task that panics terminates only the worker executing it.
// The pool does not restart workers, it keeps running with reduced capacity.
// AliveWorkers, Pending and the metrics set returned by Metrics make this
// state observable:
//
//	rkv_pool_queue_depth            tasks waiting for a worker
//	rkv_pool_workers_alive          workers still running
//	rkv_pool_worker_panics_total    workers lost to panicking tasks
//	rkv_pool_tasks_dropped_total    tasks discarded because no worker was left at Close
//
// Queue is the unbounded multi-producer queue the pool is built on. Producers
// append to a linked list with atomic operations; a single pump goroutine moves
// items onto a channel that any number of consumers may read.
package pool
