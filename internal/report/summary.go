package report

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/gwlsn/shrinkbatch/internal/jobs"
)

// Summary aggregates the outcomes of one run.
type Summary struct {
	Total       int           `json:"total"`
	Skipped     int           `json:"skipped"`
	Remuxed     int           `json:"remuxed"`
	Encoded     int           `json:"encoded"`
	Failed      int           `json:"failed"`
	InputBytes  int64         `json:"input_bytes"`  // Sources of successful jobs
	OutputBytes int64         `json:"output_bytes"` // Outputs of successful jobs
	Elapsed     time.Duration `json:"elapsed"`
}

// Add counts one result.
func (s *Summary) Add(res jobs.Result) {
	s.Total++
	switch res.Outcome {
	case jobs.OutcomeSkipped:
		s.Skipped++
	case jobs.OutcomeRemuxSucceeded:
		s.Remuxed++
	case jobs.OutcomeEncodeSucceeded:
		s.Encoded++
	default:
		s.Failed++
	}
	if res.Outcome.Succeeded() {
		s.InputBytes += res.Job.Asset.Size
		s.OutputBytes += res.OutputSize
	}
}

// SpaceSaved returns bytes saved across successful jobs. Negative when the
// outputs grew.
func (s *Summary) SpaceSaved() int64 {
	return s.InputBytes - s.OutputBytes
}

// HasFailures reports whether any job failed.
func (s *Summary) HasFailures() bool {
	return s.Failed > 0
}

// Counts renders the per-outcome counts on one line.
func (s *Summary) Counts() string {
	return fmt.Sprintf("%d video(s): %d encoded, %d remuxed, %d skipped, %d failed",
		s.Total, s.Encoded, s.Remuxed, s.Skipped, s.Failed)
}

// Savings renders the byte totals, or "" when nothing was produced.
func (s *Summary) Savings() string {
	if s.Encoded+s.Remuxed == 0 {
		return ""
	}
	saved := s.SpaceSaved()
	verb := "saved"
	if saved < 0 {
		verb = "grew by"
		saved = -saved
	}
	return fmt.Sprintf("%s → %s, %s %s (%s)",
		humanize.Bytes(uint64(s.InputBytes)),
		humanize.Bytes(uint64(s.OutputBytes)),
		verb,
		humanize.Bytes(uint64(saved)),
		percentLabel(s.InputBytes, s.OutputBytes),
	)
}

// percentLabel renders the output size relative to the input, e.g. "-42%".
func percentLabel(in, out int64) string {
	if in <= 0 {
		return "n/a"
	}
	pct := float64(out-in) / float64(in) * 100
	return fmt.Sprintf("%+.0f%%", pct)
}
