// Package pool provides the process-wide bounded worker pool used for
// CPU-bound shard filtering. The pool is created once at startup and drained
// at shutdown; request handlers dispatch tasks and await their own batch
// without blocking other requests.
package pool

import (
	"runtime"
	"sync"
)

type task struct {
	run func() interface{}
	out chan interface{}
}

// Pool is a fixed-size worker pool
type Pool struct {
	tasks chan task
	wg    sync.WaitGroup
	once  sync.Once
}

// New creates a pool with the given number of workers. A size of zero or less
// defaults to the host's parallel-execution capacity.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}

	p := &Pool{
		tasks: make(chan task),
	}

	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		t.out <- t.run()
	}
}

// Submit dispatches a task and returns the channel its result will be
// delivered on. The channel is buffered, so a caller that abandons the result
// leaks nothing: the task still runs to completion and its result is simply
// discarded. Submit must not be called after Close.
func (p *Pool) Submit(run func() interface{}) <-chan interface{} {
	out := make(chan interface{}, 1)
	p.tasks <- task{run: run, out: out}
	return out
}

// Close stops accepting tasks and waits for in-flight tasks to finish
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.tasks)
	})
	p.wg.Wait()
}
