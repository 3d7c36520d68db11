package retriever

import (
	"context"
	"sync"

	"github.com/btraven00/plagcheck/internal/discovery"
)

// fetchTask is one candidate to retrieve.
type fetchTask struct {
	Reference discovery.Reference
	Index     int
}

// fetchOutcome is the result of a fetchTask.
type fetchOutcome struct {
	Status FetchStatus
	Text   string
}

// workerPool fetches candidates in parallel and stores each outcome at its
// task index, so results keep candidate order regardless of scheduling.
type workerPool struct {
	fetch      func(context.Context, fetchTask) fetchOutcome
	tasks      chan fetchTask
	results    []fetchOutcome
	wg         sync.WaitGroup
	numWorkers int
}

func newWorkerPool(numWorkers, numTasks int, fetch func(context.Context, fetchTask) fetchOutcome) *workerPool {
	if numWorkers <= 0 {
		numWorkers = 1
	}

	if numWorkers > numTasks && numTasks > 0 {
		numWorkers = numTasks
	}

	return &workerPool{
		fetch:      fetch,
		numWorkers: numWorkers,
		tasks:      make(chan fetchTask, numWorkers*2),
		results:    make([]fetchOutcome, numTasks),
	}
}

// run processes all tasks and blocks until every worker has finished.
// Tasks not started before ctx is cancelled are reported as failed.
func (wp *workerPool) run(ctx context.Context, tasks []fetchTask) []fetchOutcome {
	started := make([]bool, len(tasks))

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, started)
	}

submit:
	for _, task := range tasks {
		select {
		case wp.tasks <- task:
		case <-ctx.Done():
			break submit
		}
	}

	close(wp.tasks)
	wp.wg.Wait()

	for i, task := range tasks {
		if !started[i] {
			wp.results[i] = fetchOutcome{Status: FetchStatus{
				Reference: task.Reference,
				Index:     task.Index,
				Error:     context.Cause(ctx).Error(),
			}}
		}
	}

	return wp.results
}

func (wp *workerPool) worker(ctx context.Context, started []bool) {
	defer wp.wg.Done()

	for task := range wp.tasks {
		if ctx.Err() != nil {
			continue
		}

		// Each index is written by exactly one worker.
		started[task.Index] = true
		wp.results[task.Index] = wp.fetch(ctx, task)
	}
}
