// Package async provides a bounded worker pool for fan-out queries.
//
// The analytics for one dashboard request have no data dependency on each
// other and run fully in parallel over the same immutable snapshot; the pool
// bounds how many run at once.
package async

import (
	"context"
	"sync"
)

// Task is one named unit of work.
type Task struct {
	Name    string
	Execute func() (interface{}, error)
}

// Result is the outcome of one task.
type Result struct {
	Name string
	Data interface{}
	Err  error
}

// Pool runs task batches with bounded concurrency.
type Pool struct {
	workerCount int
}

// NewPool creates a pool running at most workerCount tasks concurrently.
func NewPool(workerCount int) *Pool {
	if workerCount <= 0 {
		workerCount = 4
	}
	return &Pool{workerCount: workerCount}
}

// Execute runs all tasks and returns their results keyed by task name.
// When the context is cancelled, unstarted tasks report the context error
// instead of running: computation never proceeds on a partial batch.
func (p *Pool) Execute(ctx context.Context, tasks []Task) map[string]Result {
	sem := make(chan struct{}, p.workerCount)
	out := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(task Task) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				out <- Result{Name: task.Name, Err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			data, err := task.Execute()
			out <- Result{Name: task.Name, Data: data, Err: err}
		}(task)
	}
	wg.Wait()
	close(out)

	results := make(map[string]Result, len(tasks))
	for r := range out {
		results[r.Name] = r
	}
	return results
}
