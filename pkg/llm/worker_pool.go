package llm

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// WorkerPoolConfig configures the generation worker pool.
type WorkerPoolConfig struct {
	MaxConcurrent int // Maximum concurrent generation calls (default: 1, strictly sequential)
}

// DefaultWorkerPoolConfig returns the sequential default.
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		MaxConcurrent: 1,
	}
}

// WorkerPool runs generation work with bounded parallelism and hands results
// back in submission order regardless of completion order.
type WorkerPool struct {
	config WorkerPoolConfig
	logger *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(config WorkerPoolConfig, logger *zap.Logger) *WorkerPool {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = 1
	}
	return &WorkerPool{
		config: config,
		logger: logger.Named("worker-pool"),
	}
}

// MaxConcurrent returns the configured concurrency bound.
func (p *WorkerPool) MaxConcurrent() int {
	return p.config.MaxConcurrent
}

// WorkItem represents a unit of work to be processed.
type WorkItem[T any] struct {
	ID      string                               // For logging/tracking
	Execute func(ctx context.Context) (T, error) // The work to be executed
}

// WorkResult represents the result of a work item.
type WorkResult[T any] struct {
	Index  int // Position of the item in the submitted slice
	ID     string
	Result T
	Err    error
}

// Process executes all work items with bounded parallelism and returns one result
// per item, ordered by submission index. Workers pick items up in submission order,
// so a pool of one runs them strictly sequentially. Items not yet started when ctx is
// cancelled are skipped and carry ctx.Err().
func Process[T any](
	ctx context.Context,
	pool *WorkerPool,
	items []WorkItem[T],
	onProgress func(completed, total int),
) []WorkResult[T] {
	if len(items) == 0 {
		return nil
	}

	workers := pool.config.MaxConcurrent
	if workers > len(items) {
		workers = len(items)
	}

	queue := make(chan int, len(items))
	for i := range items {
		queue <- i
	}
	close(queue)

	resultsChan := make(chan WorkResult[T], len(items))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range queue {
				item := items[index]
				if err := ctx.Err(); err != nil {
					var zero T
					resultsChan <- WorkResult[T]{Index: index, ID: item.ID, Result: zero, Err: err}
					continue
				}

				result, err := item.Execute(ctx)
				if err != nil {
					pool.logger.Debug("work item failed", zap.String("id", item.ID), zap.Error(err))
				}
				resultsChan <- WorkResult[T]{
					Index:  index,
					ID:     item.ID,
					Result: result,
					Err:    err,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	results := make([]WorkResult[T], 0, len(items))
	completed := 0
	for result := range resultsChan {
		results = append(results, result)
		completed++
		if onProgress != nil {
			onProgress(completed, len(items))
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	return results
}
