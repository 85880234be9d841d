// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package parallel splits per-row image work across a fixed set of
// goroutines.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// MinBandRows is the smallest band handed to a worker. Images with fewer
// rows than two bands run inline on the caller.
const MinBandRows = 16

// Pool runs work items on a fixed number of goroutines. Each worker owns a
// queue and steals from the others when its own queue is empty.
//
// Pool is safe for concurrent use.
type Pool struct {
	workers int
	queues  []chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool

	// mu orders enqueueing in Run before close(done) in Close.
	mu sync.RWMutex
}

// NewPool starts a pool with n workers. n <= 0 means GOMAXPROCS.
func NewPool(n int) *Pool {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	depth := max(n*4, 8)

	p := &Pool{
		workers: n,
		queues:  make([]chan func(), n),
		done:    make(chan struct{}),
	}
	for i := range p.queues {
		p.queues[i] = make(chan func(), depth)
	}
	p.running.Store(true)

	p.wg.Add(n)
	for i := range n {
		go p.loop(i)
	}
	return p
}

func (p *Pool) loop(id int) {
	defer p.wg.Done()
	own := p.queues[id]
	for {
		select {
		case <-p.done:
			drain(own)
			return
		case fn := <-own:
			fn()
			continue
		default:
		}

		if fn := p.steal(id); fn != nil {
			fn()
			continue
		}
		select {
		case <-p.done:
			drain(own)
			return
		case fn := <-own:
			fn()
		}
	}
}

func drain(q chan func()) {
	for {
		select {
		case fn := <-q:
			fn()
		default:
			return
		}
	}
}

func (p *Pool) steal(id int) func() {
	for i := range p.workers {
		if i == id {
			continue
		}
		select {
		case fn := <-p.queues[i]:
			return fn
		default:
		}
	}
	return nil
}

// Run executes every item and blocks until all of them returned. After
// Close, items run on the calling goroutine.
func (p *Pool) Run(work []func()) {
	if len(work) == 0 {
		return
	}
	p.mu.RLock()
	if !p.running.Load() {
		p.mu.RUnlock()
		for _, fn := range work {
			fn()
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(work))
	for i, fn := range work {
		p.queues[i%p.workers] <- func() {
			defer wg.Done()
			fn()
		}
	}
	p.mu.RUnlock()
	wg.Wait()
}

// Rows splits [0,height) into contiguous bands, one per worker at most, and
// calls fn for each band in parallel.
func (p *Pool) Rows(height int, fn func(y0, y1 int)) {
	bands := Bands(height, p.workers)
	if len(bands) <= 1 {
		if height > 0 {
			fn(0, height)
		}
		return
	}
	work := make([]func(), len(bands))
	for i, b := range bands {
		work[i] = func() { fn(b[0], b[1]) }
	}
	p.Run(work)
}

// Bands divides [0,height) into at most n half-open ranges of at least
// MinBandRows rows each. The last band absorbs the remainder.
func Bands(height, n int) [][2]int {
	if height <= 0 {
		return nil
	}
	n = min(n, height/MinBandRows)
	if n <= 1 {
		return [][2]int{{0, height}}
	}
	step := height / n
	out := make([][2]int, n)
	for i := range out {
		out[i] = [2]int{i * step, (i + 1) * step}
	}
	out[n-1][1] = height
	return out
}

// Workers returns the worker count.
func (p *Pool) Workers() int { return p.workers }

// Close stops the workers after the queued items ran. It is safe to call
// more than once and concurrently with Run. Run must not be called from a
// work item.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.running.CompareAndSwap(true, false) {
		p.mu.Unlock()
		return
	}
	close(p.done)
	p.mu.Unlock()
	p.wg.Wait()
}

var (
	sharedOnce sync.Once
	shared     *Pool
)

// Shared returns a process wide pool sized to GOMAXPROCS. It is never
// closed.
func Shared() *Pool {
	sharedOnce.Do(func() { shared = NewPool(0) })
	return shared
}
