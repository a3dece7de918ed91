package compute

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Kernel processes the half-open element range [lo, hi)
type Kernel func(lo, hi int)

// Workgroup is one contiguous slice of a dispatch
type Workgroup struct {
	ID int // For deterministic ordering
	Lo int
	Hi int
}

// WorkerPool runs workgroups of a single kernel in parallel
type WorkerPool struct {
	taskQueue chan Workgroup
	workers   []*Worker
	group     *errgroup.Group
	ctx       context.Context
}

// Worker executes workgroups from the shared queue
type Worker struct {
	ID        int
	kernel    Kernel
	taskQueue chan Workgroup
}

// NewWorkerPool creates a worker pool with the specified number of workers.
// maxTasks sizes the queue so that submitting never blocks.
func NewWorkerPool(ctx context.Context, kernel Kernel, numWorkers, maxTasks int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	group, gctx := errgroup.WithContext(ctx)
	wp := &WorkerPool{
		taskQueue: make(chan Workgroup, maxTasks),
		group:     group,
		ctx:       gctx,
	}

	for i := 0; i < numWorkers; i++ {
		wp.workers = append(wp.workers, &Worker{
			ID:        i,
			kernel:    kernel,
			taskQueue: wp.taskQueue,
		})
	}

	return wp
}

// Start begins all workers
func (wp *WorkerPool) Start() {
	for _, worker := range wp.workers {
		w := worker
		wp.group.Go(func() error { return w.run(wp.ctx) })
	}
}

// SubmitTask queues a workgroup
func (wp *WorkerPool) SubmitTask(task Workgroup) {
	wp.taskQueue <- task
}

// Stop closes the queue and waits for the workers. It returns the first
// kernel failure or context error.
func (wp *WorkerPool) Stop() error {
	close(wp.taskQueue)
	return wp.group.Wait()
}

// run is the main worker loop. It stops at the first failure; the errgroup
// context then makes the remaining workers stop too.
func (w *Worker) run(ctx context.Context) error {
	for task := range w.taskQueue {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.execute(task); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) execute(task Workgroup) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("kernel panic in workgroup %d [%d, %d): %v", task.ID, task.Lo, task.Hi, r)
		}
	}()
	w.kernel(task.Lo, task.Hi)
	return nil
}
