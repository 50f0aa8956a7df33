package jobs

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/gwlsn/shrinkbatch/internal/engine"
	"github.com/gwlsn/shrinkbatch/internal/ffmpeg"
	"github.com/gwlsn/shrinkbatch/internal/logger"
	"github.com/gwlsn/shrinkbatch/internal/scan"
)

// DispatchOptions are the per-run knobs of the dispatcher.
type DispatchOptions struct {
	// Remux enables the stream-copy attempt.
	Remux bool
	// RemuxContainers lists source extensions eligible for stream copy.
	RemuxContainers []string
}

// Dispatcher drives one job through skip check, optional remux and encode.
type Dispatcher struct {
	engine          engine.Engine
	remux           bool
	remuxContainers map[string]bool
}

// NewDispatcher creates a dispatcher bound to the run's engine.
func NewDispatcher(eng engine.Engine, opts DispatchOptions) *Dispatcher {
	containers := make(map[string]bool, len(opts.RemuxContainers))
	for _, ext := range opts.RemuxContainers {
		containers[ext] = true
	}
	return &Dispatcher{
		engine:          eng,
		remux:           opts.Remux,
		remuxContainers: containers,
	}
}

// ShouldRemux reports whether job qualifies for a stream-copy attempt.
func (d *Dispatcher) ShouldRemux(job *Job) bool {
	return d.remux && d.engine.Capability().StreamCopy && d.remuxContainers[job.Asset.Ext]
}

// Dispatch runs job to a terminal state and returns its single result.
// The engine invocation ignores ctx cancellation: once started, an encode
// runs to completion.
func (d *Dispatcher) Dispatch(ctx context.Context, job *Job) Result {
	start := time.Now()
	log := logger.With("job_id", job.ID, "file", job.Asset.RelPath)

	finish := func(state State, outcome Outcome, err error, size int64) Result {
		job.State = state
		return Result{
			Job:        job,
			Outcome:    outcome,
			Err:        err,
			OutputSize: size,
			Elapsed:    time.Since(start),
		}
	}

	// Another run, or an earlier job, may have produced the output since scanning
	if scan.IsCompressedName(job.Asset.Path) {
		return finish(StateSkipped, OutcomeSkipped, outputExistsError(job.Asset.Path), 0)
	}
	if info, err := os.Stat(job.OutputPath); err == nil && info.Size() > 0 {
		log.Info("Output exists, skipping", "output", job.OutputPath)
		return finish(StateSkipped, OutcomeSkipped, outputExistsError(job.OutputPath), info.Size())
	}

	if err := EnsureOutputDir(job.OutputPath); err != nil {
		log.Error("Cannot create output directory", "error", err)
		return finish(StateFailed, OutcomeFailed, encodeError(err), 0)
	}

	runCtx := context.WithoutCancel(ctx)
	log.Info("Job started", "engine", job.Engine, "quality", job.Quality)

	var remuxErr error
	if d.ShouldRemux(job) {
		job.State = StateRemuxAttempt
		res, err := d.engine.Compress(runCtx, job.Asset.Path, job.OutputPath, job.Quality, engine.ModeRemux)
		if err == nil {
			d.keepModTime(log, job)
			log.Info("Remux complete", "size", res.OutputSize, "took", res.Duration)
			return finish(StateRemuxSucceeded, OutcomeRemuxSucceeded, nil, res.OutputSize)
		}
		remuxErr = remuxError(err)
		os.Remove(job.OutputPath)
		log.Warn("Remux failed, falling back to encode", "error", summarize(err))
	}

	job.State = StateEncodeAttempt
	res, err := d.engine.Compress(runCtx, job.Asset.Path, job.OutputPath, job.Quality, engine.ModeEncode)
	if err != nil {
		os.Remove(job.OutputPath)
		log.Error("Encode failed", "error", summarize(err))
		r := finish(StateFailed, OutcomeFailed, encodeError(err), 0)
		r.RemuxErr = remuxErr
		return r
	}

	d.keepModTime(log, job)
	log.Info("Encode complete", "size", res.OutputSize, "took", res.Duration)
	r := finish(StateEncodeSucceeded, OutcomeEncodeSucceeded, nil, res.OutputSize)
	r.RemuxErr = remuxErr
	return r
}

func (d *Dispatcher) keepModTime(log *slog.Logger, job *Job) {
	if err := ffmpeg.PreserveModTime(job.Asset.Path, job.OutputPath); err != nil {
		log.Warn("Could not preserve modification time", "error", err)
	}
}

// summarize keeps log lines short: the error plus the encoder's last words.
func summarize(err error) string {
	var te *ffmpeg.TranscodeError
	if errors.As(err, &te) && te.Stderr != "" {
		return err.Error() + ": " + te.Tail(3)
	}
	return err.Error()
}
