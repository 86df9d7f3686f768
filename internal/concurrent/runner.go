// Package concurrent fans work items out to a bounded pool of goroutines.
package concurrent

import (
	"context"
	"sync"

	"score-viewer/internal/logger"
)

// WorkerFunc processes one item. Progress goes to messages, outcomes to
// results or errs. Workers should return early once ctx is done.
type WorkerFunc[T any, R any] func(ctx context.Context, item T, messages chan<- string, results chan<- R, errs chan<- error)

type RunnerConfig struct {
	MaxConcurrency int // 0 means unlimited
	Component      string
	Logger         logger.Logger
}

type Runner[T any, R any] struct {
	config RunnerConfig
}

func NewRunner[T any, R any](config RunnerConfig) *Runner[T, R] {
	if config.Component == "" {
		config.Component = "runner"
	}
	if config.Logger == nil {
		config.Logger = logger.NopLogger{}
	}
	return &Runner[T, R]{config: config}
}

// RunResult holds results and errors in completion order.
type RunResult[R any] struct {
	Results []R
	Errors  []error
}

// Run executes worker for every item and collects what they report.
func (r *Runner[T, R]) Run(ctx context.Context, items []T, worker WorkerFunc[T, R]) RunResult[R] {
	res := RunResult[R]{Results: []R{}, Errors: []error{}}
	r.RunWithCallbacks(ctx, items, worker, nil,
		func(v R) { res.Results = append(res.Results, v) },
		func(err error) { res.Errors = append(res.Errors, err) },
	)
	return res
}

// RunWithCallbacks is Run with results handed out as they arrive. Each
// callback is invoked from a single goroutine.
func (r *Runner[T, R]) RunWithCallbacks(
	ctx context.Context,
	items []T,
	worker WorkerFunc[T, R],
	onMessage func(string),
	onResult func(R),
	onError func(error),
) {
	if len(items) == 0 {
		return
	}

	var collectors sync.WaitGroup

	messages := make(chan string)
	collectors.Add(1)
	go func() {
		defer collectors.Done()
		for message := range messages {
			if onMessage != nil {
				onMessage(message)
			}
			r.config.Logger.Debug(message, map[string]interface{}{"component": r.config.Component})
		}
	}()

	results := make(chan R)
	collectors.Add(1)
	go func() {
		defer collectors.Done()
		for result := range results {
			if onResult != nil {
				onResult(result)
			}
		}
	}()

	errs := make(chan error)
	collectors.Add(1)
	go func() {
		defer collectors.Done()
		for err := range errs {
			if onError != nil {
				onError(err)
			}
		}
	}()

	var workers sync.WaitGroup

	var throttle chan struct{}
	if r.config.MaxConcurrency > 0 {
		throttle = make(chan struct{}, r.config.MaxConcurrency)
	}

	for _, item := range items {
		if throttle != nil {
			select {
			case throttle <- struct{}{}:
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			break
		}

		workers.Add(1)
		go func(item T) {
			defer workers.Done()
			if throttle != nil {
				defer func() { <-throttle }()
			}
			worker(ctx, item, messages, results, errs)
		}(item)
	}

	workers.Wait()

	close(messages)
	close(results)
	close(errs)

	collectors.Wait()
}
