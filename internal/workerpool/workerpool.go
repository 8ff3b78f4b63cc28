// ABOUTME: Worker pool for concurrent task execution
// ABOUTME: Jobs return errors, which the pool collects for the caller

// Package workerpool provides a submit-and-wait worker pool sized to the
// available CPUs. Jobs return an error and the pool collects every
// non-nil one, so callers running independent fallible I/O reads can
// tell which of them failed.
package workerpool

import (
	"runtime"
	"sync"
)

// Pool manages a set of worker goroutines that run error-returning jobs
// concurrently and collect whichever errors come back. catalogstore uses
// one to run its three independent per-layer catalog reads in parallel.
type Pool struct {
	workers  int
	taskChan chan func() error
	workerWg sync.WaitGroup
	taskWg   sync.WaitGroup

	mu   sync.Mutex
	errs []error
}

// New creates a worker pool sized to available CPUs. bufferSize sets the
// task channel capacity.
func New(bufferSize int) *Pool {
	numWorkers := runtime.NumCPU()

	p := &Pool{
		workers:  numWorkers,
		taskChan: make(chan func() error, bufferSize),
	}

	for range numWorkers {
		p.workerWg.Add(1)

		go func() {
			defer p.workerWg.Done()

			for job := range p.taskChan {
				if err := job(); err != nil {
					p.mu.Lock()
					p.errs = append(p.errs, err)
					p.mu.Unlock()
				}

				p.taskWg.Done()
			}
		}()
	}

	return p
}

// Submit adds a job to the pool. Blocks if the task channel is full. A
// non-nil return is collected and surfaced from Errors after Wait.
func (p *Pool) Submit(job func() error) {
	p.taskWg.Add(1)
	p.taskChan <- job
}

// Wait blocks until all submitted jobs have completed.
func (p *Pool) Wait() {
	p.taskWg.Wait()
}

// Errors returns every non-nil error collected from submitted jobs so
// far, in completion order rather than submission order.
func (p *Pool) Errors() []error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]error(nil), p.errs...)
}

// Close shuts down the pool and waits for all workers to exit.
func (p *Pool) Close() {
	close(p.taskChan)
	p.workerWg.Wait()
}
