package worker

import (
	"context"
	"fmt"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

type envelope struct {
	index int
	job   Job
}

type outcome struct {
	index  int
	result Result
}

// Pool manages a pool of workers that execute jobs concurrently.
// Results are returned in submission order regardless of completion order.
type Pool struct {
	workers    int
	jobQueue   chan envelope
	results    chan outcome
	collected  []Result
	collectWG  sync.WaitGroup
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	submitted  int
	closeJobs  sync.Once
	closeOnce  sync.Once
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan envelope, workers*2),
		results:    make(chan outcome, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the workers and the result collector
func (p *Pool) Start() {
	p.collectWG.Add(1)
	go p.collect()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// collect drains results as they arrive so workers never block on a full channel
func (p *Pool) collect() {
	defer p.collectWG.Done()
	for o := range p.results {
		for len(p.collected) <= o.index {
			p.collected = append(p.collected, nil)
		}
		p.collected[o.index] = o.result
	}
}

// worker is the worker goroutine that processes jobs
func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case env, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.results <- outcome{index: env.index, result: env.job.Execute(p.ctx)}
		}
	}
}

// Submit queues a job. It returns the context error once the pool is cancelled.
// Submit must not be called concurrently with itself or after Wait.
func (p *Pool) Submit(job Job) error {
	if err := p.ctx.Err(); err != nil {
		return err
	}
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.jobQueue <- envelope{index: p.submitted, job: job}:
		p.submitted++
		return nil
	}
}

// Wait waits for all submitted jobs and returns their results in submission order.
// An error is returned when any job did not run.
func (p *Pool) Wait() ([]Result, error) {
	defer p.cancelFunc()

	p.closeJobs.Do(func() { close(p.jobQueue) })
	p.wg.Wait()
	p.closeResults()
	p.collectWG.Wait()

	results := make([]Result, p.submitted)
	copy(results, p.collected)

	missing := 0
	for _, r := range results {
		if r == nil {
			missing++
		}
	}
	if missing > 0 {
		if err := p.ctx.Err(); err != nil {
			return results, fmt.Errorf("%d of %d jobs did not run: %w", missing, p.submitted, err)
		}
		return results, fmt.Errorf("%d of %d jobs did not run", missing, p.submitted)
	}
	return results, nil
}

// Shutdown shuts down the worker pool immediately
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
	p.collectWG.Wait()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
