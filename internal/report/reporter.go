package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/gwlsn/shrinkbatch/internal/jobs"
	"github.com/gwlsn/shrinkbatch/internal/logger"
	"github.com/gwlsn/shrinkbatch/internal/store"
)

// Options configures the optional persistence of a Reporter.
type Options struct {
	// Stats writes a record per produced output when set.
	Stats *StatsWriter
	// History records every result under Run when both are set.
	History store.Store
	Run     *store.Run
}

// Reporter prints per-job markers and the end-of-run summary. It consumes
// results from a single goroutine, so the history store is never written
// concurrently by it.
type Reporter struct {
	out     io.Writer
	stats   *StatsWriter
	history store.Store
	run     *store.Run
	summary Summary
	log     *slog.Logger
}

// NewReporter creates a reporter printing to out.
func NewReporter(out io.Writer, opts Options) *Reporter {
	r := &Reporter{
		out:   out,
		stats: opts.Stats,
		log:   logger.With("component", "reporter"),
	}
	if opts.History != nil && opts.Run != nil {
		r.history = opts.History
		r.run = opts.Run
	}
	return r
}

// Consume reads results until the channel closes, then finishes the run
// history and prints the summary. Results may arrive in any order.
func (r *Reporter) Consume(ctx context.Context, results <-chan jobs.Result) Summary {
	start := time.Now()
	for res := range results {
		r.Handle(ctx, res)
	}
	r.summary.Elapsed = time.Since(start)
	r.finishRun()
	r.PrintSummary()
	return r.summary
}

// Handle reports a single result.
func (r *Reporter) Handle(ctx context.Context, res jobs.Result) {
	r.summary.Add(res)
	fmt.Fprintln(r.out, Marker(res))

	if res.Outcome.Succeeded() && r.stats != nil {
		path, err := r.stats.Write(ctx, res.Job.Asset.Path, res.Job.OutputPath, res.Job.Engine)
		if err != nil {
			r.log.Warn("Stats record not written", "output", res.Job.OutputPath, "error", err)
		} else {
			r.log.Debug("Stats record written", "path", path)
		}
	}

	if r.history != nil {
		rec := &store.ResultRecord{
			RunID:       r.run.ID,
			JobID:       res.Job.ID,
			InputPath:   res.Job.Asset.Path,
			OutputPath:  res.Job.OutputPath,
			Outcome:     string(res.Outcome),
			Error:       res.Detail(),
			InputSize:   res.Job.Asset.Size,
			Elapsed:     res.Elapsed,
			CompletedAt: time.Now(),
		}
		if res.Outcome.Succeeded() {
			rec.OutputSize = res.OutputSize
		}
		if err := r.history.RecordResult(rec); err != nil {
			r.log.Warn("Failed to record result", "job_id", res.Job.ID, "error", err)
		}
	}
}

// Summary returns the counts so far.
func (r *Reporter) Summary() Summary {
	return r.summary
}

// PrintSummary writes the end-of-run totals.
func (r *Reporter) PrintSummary() {
	fmt.Fprintf(r.out, "🎉 Done: %s in %s\n", r.summary.Counts(), r.summary.Elapsed.Round(time.Second))
	if savings := r.summary.Savings(); savings != "" {
		fmt.Fprintf(r.out, "   %s\n", savings)
	}
}

func (r *Reporter) finishRun() {
	if r.history == nil {
		return
	}
	s := r.summary
	r.run.Total = s.Total
	r.run.Skipped = s.Skipped
	r.run.Remuxed = s.Remuxed
	r.run.Encoded = s.Encoded
	r.run.Failed = s.Failed
	r.run.InputBytes = s.InputBytes
	r.run.OutputBytes = s.OutputBytes
	if err := r.history.FinishRun(r.run); err != nil {
		r.log.Warn("Failed to finish run history", "run_id", r.run.ID, "error", err)
	}
}

// Marker renders the one-line report for a result.
func Marker(res jobs.Result) string {
	name := res.Job.Asset.RelPath
	if name == "" {
		name = res.Job.Asset.Path
	}

	switch res.Outcome {
	case jobs.OutcomeSkipped:
		if detail := res.Detail(); detail != "" {
			return fmt.Sprintf("⏭ skipped %s (%s)", name, detail)
		}
		return fmt.Sprintf("⏭ skipped %s", name)
	case jobs.OutcomeRemuxSucceeded:
		return fmt.Sprintf("🔁 remuxed %s → %s (%s)", name, res.Job.OutputPath, humanize.Bytes(uint64(res.OutputSize)))
	case jobs.OutcomeEncodeSucceeded:
		return fmt.Sprintf("✅ encoded %s → %s (%s → %s, %s)", name, res.Job.OutputPath,
			humanize.Bytes(uint64(res.Job.Asset.Size)),
			humanize.Bytes(uint64(res.OutputSize)),
			percentLabel(res.Job.Asset.Size, res.OutputSize))
	default:
		return fmt.Sprintf("❌ failed %s: %s", name, res.Detail())
	}
}
