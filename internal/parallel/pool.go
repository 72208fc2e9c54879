// Package parallel provides the worker pool used to split per-vertex work
// (packing, CPU evaluation) across goroutines.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// DefaultChunk is the number of items handed to a worker at a time when
// the caller passes chunk <= 0 to [WorkerPool.For].
const DefaultChunk = 1024

// WorkerPool is a fixed set of goroutines draining a shared work queue.
//
// A nil or closed pool runs work inline on the calling goroutine, so callers
// never lose work and never need a separate sequential path.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers int
	queue   chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool

	// closeMu keeps Close from racing a submission in progress.
	closeMu sync.RWMutex
}

// NewWorkerPool creates a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &WorkerPool{
		workers: workers,
		queue:   make(chan func(), max(workers*4, 8)),
		done:    make(chan struct{}),
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	return p
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case work := <-p.queue:
			work()
		case <-p.done:
			// drain what was queued before Close
			for {
				select {
				case work := <-p.queue:
					work()
				default:
					return
				}
			}
		}
	}
}

// ExecuteAll runs every work item and waits for all of them to finish.
func (p *WorkerPool) ExecuteAll(work []func()) {
	if len(work) == 0 {
		return
	}
	if p == nil {
		for _, fn := range work {
			fn()
		}
		return
	}

	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if !p.running.Load() {
		for _, fn := range work {
			fn()
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(work))
	for _, fn := range work {
		p.queue <- func() {
			defer wg.Done()
			fn()
		}
	}
	wg.Wait()
}

// For calls fn over [0, n) split into contiguous ranges of at most chunk
// items and waits for every range to complete. Ranges never overlap, so fn
// may write to disjoint slice elements without further locking.
func (p *WorkerPool) For(n, chunk int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if chunk <= 0 {
		chunk = DefaultChunk
	}
	if n <= chunk || p.Workers() <= 1 {
		fn(0, n)
		return
	}

	work := make([]func(), 0, (n+chunk-1)/chunk)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		work = append(work, func() { fn(lo, hi) })
	}
	p.ExecuteAll(work)
}

// Close stops the workers after the queued work has run.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	if p == nil {
		return
	}
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers, or 1 for a nil pool.
func (p *WorkerPool) Workers() int {
	if p == nil {
		return 1
	}
	return p.workers
}

// IsRunning reports whether the pool still dispatches to its workers.
func (p *WorkerPool) IsRunning() bool {
	return p != nil && p.running.Load()
}
