package jobs

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gwlsn/shrinkbatch/internal/logger"
)

// Runner takes a job to a terminal state. *Dispatcher is the production Runner.
type Runner interface {
	Dispatch(ctx context.Context, job *Job) Result
}

// WorkerPool runs jobs on a fixed number of workers.
type WorkerPool struct {
	workers int
	runner  Runner
}

// NewWorkerPool creates a pool of n workers (clamped to the valid range).
func NewWorkerPool(n int, runner Runner) *WorkerPool {
	return &WorkerPool{
		workers: ClampWorkerCount(n),
		runner:  runner,
	}
}

// WorkerCount returns the number of workers
func (p *WorkerPool) WorkerCount() int {
	return p.workers
}

// Run submits jobs in order and streams one Result per job. The channel is
// closed after the last result. Cancelling ctx stops further dispatch; jobs
// already running finish, the rest are reported as skipped with
// ErrInterrupted.
func (p *WorkerPool) Run(ctx context.Context, jobs []*Job) <-chan Result {
	results := make(chan Result, len(jobs))
	queue := make(chan *Job)

	var g errgroup.Group

	// Feeder: submission order equals scan order
	g.Go(func() error {
		defer close(queue)
		for i, job := range jobs {
			select {
			case queue <- job:
			case <-ctx.Done():
				for _, rest := range jobs[i:] {
					results <- interrupted(rest)
				}
				return nil
			}
		}
		return nil
	})

	for i := 0; i < p.workers; i++ {
		workerID := i
		g.Go(func() error {
			for job := range queue {
				if ctx.Err() != nil {
					results <- interrupted(job)
					continue
				}
				results <- p.dispatch(ctx, workerID, job)
			}
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(results)
	}()

	return results
}

// dispatch isolates a single job: a panic becomes a failed result instead of
// taking the run down.
func (p *WorkerPool) dispatch(ctx context.Context, workerID int, job *Job) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job_id", job.ID, "worker", workerID, "panic", r, "stack", string(debug.Stack()))
			job.State = StateFailed
			res = Result{
				Job:     job,
				Outcome: OutcomeFailed,
				Err:     fmt.Errorf("%w: %v", ErrJobPanicked, r),
				Elapsed: time.Since(start),
			}
		}
	}()

	logger.Debug("Job dispatched", "job_id", job.ID, "worker", workerID)
	return p.runner.Dispatch(ctx, job)
}

func interrupted(job *Job) Result {
	job.State = StateSkipped
	return Result{Job: job, Outcome: OutcomeSkipped, Err: ErrInterrupted}
}
