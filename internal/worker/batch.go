package worker

import (
	"context"
	"fmt"
)

// Task is the function a batch applies to each item
type Task[T, R any] func(ctx context.Context, item T) (R, error)

// TaskJob runs one item of a batch
type TaskJob[T, R any] struct {
	Item T
	Run  Task[T, R]
}

// Execute executes the task
func (j *TaskJob[T, R]) Execute(ctx context.Context) Result {
	value, err := j.Run(ctx, j.Item)
	return &TaskResult[R]{Value: value, Error: err}
}

// TaskResult represents the result of a task
type TaskResult[R any] struct {
	Value R
	Error error
}

// GetError returns the error from the task result
func (r *TaskResult[R]) GetError() error {
	return r.Error
}

// BatchProcessor applies a task to many items concurrently
type BatchProcessor[T, R any] struct {
	run         Task[T, R]
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor[T, R any](run Task[T, R], concurrency int) *BatchProcessor[T, R] {
	return &BatchProcessor[T, R]{
		run:         run,
		concurrency: concurrency,
	}
}

// Process runs the task on every item. Values come back in input order.
// The error of the lowest-indexed failing item is returned.
func (b *BatchProcessor[T, R]) Process(ctx context.Context, items []T) ([]R, error) {
	if len(items) == 0 {
		return []R{}, nil
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, item := range items {
		if err := pool.Submit(&TaskJob[T, R]{Item: item, Run: b.run}); err != nil {
			pool.Shutdown()
			return nil, fmt.Errorf("submit: %w", err)
		}
	}

	results, err := pool.Wait()
	if err != nil {
		return nil, err
	}

	values := make([]R, len(results))
	for i, result := range results {
		tr := result.(*TaskResult[R])
		if tr.Error != nil {
			return nil, fmt.Errorf("item %d: %w", i, tr.Error)
		}
		values[i] = tr.Value
	}
	return values, nil
}
