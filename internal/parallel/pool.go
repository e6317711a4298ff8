// Package parallel provides the bounded worker pool behind imageio.LoadAll.
//
// It runs CPU-bound jobs such as image decoding off the caller's goroutine
// and never touches rendering state.
package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("parallel: pool closed")

// Pool is a fixed set of worker goroutines with one queue each. A worker
// whose queue is empty steals from the others.
//
// Pool is safe for concurrent use.
type Pool struct {
	workers int
	queues  []chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewPool starts a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	queueSize := max(workers*4, 8)

	p := &Pool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range workers {
		p.queues[i] = make(chan func(), queueSize)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	own := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(own)
			return
		case job := <-own:
			job()
			continue
		default:
		}

		if job := p.steal(id); job != nil {
			job()
			continue
		}
		select {
		case <-p.done:
			p.drain(own)
			return
		case job := <-own:
			job()
		}
	}
}

func (p *Pool) drain(q chan func()) {
	for {
		select {
		case job := <-q:
			job()
		default:
			return
		}
	}
}

func (p *Pool) steal(self int) func() {
	for i := range p.workers {
		if i == self {
			continue
		}
		select {
		case job := <-p.queues[i]:
			return job
		default:
		}
	}
	return nil
}

// Run calls fn(ctx, i) for every i in [0, n) across the workers and waits
// for all calls to return. Jobs not yet started when ctx is done are
// skipped. The returned error joins every job error in index order, plus
// ctx.Err() if any job was skipped.
func (p *Pool) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if n <= 0 {
		return nil
	}
	if !p.running.Load() {
		return ErrClosed
	}

	errs := make([]error, n)
	var skipped atomic.Bool
	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		job := func() {
			defer wg.Done()
			if ctx.Err() != nil {
				skipped.Store(true)
				return
			}
			errs[i] = fn(ctx, i)
		}
		select {
		case p.queues[i%p.workers] <- job:
		case <-p.done:
			// Closing: the remaining jobs never start.
			skipped.Store(true)
			for range n - i {
				wg.Done()
			}
			wg.Wait()
			return errors.Join(append(errs, ErrClosed)...)
		}
	}
	wg.Wait()

	if skipped.Load() {
		errs = append(errs, ctx.Err())
	}
	return errors.Join(errs...)
}

// Close stops the workers after the queued jobs finish. Close is safe to
// call multiple times.
func (p *Pool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers.
func (p *Pool) Workers() int { return p.workers }

// Running reports whether the pool accepts work.
func (p *Pool) Running() bool { return p.running.Load() }
