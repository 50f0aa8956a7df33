package jobs

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gwlsn/shrinkbatch/internal/scan"
)

// State is the position of a job in the dispatch state machine.
type State string

const (
	StateIdle            State = "idle"
	StateRemuxAttempt    State = "remux_attempt"
	StateEncodeAttempt   State = "encode_attempt"
	StateSkipped         State = "skipped"
	StateRemuxSucceeded  State = "remux_succeeded"
	StateEncodeSucceeded State = "encode_succeeded"
	StateFailed          State = "failed"
)

// Outcome is the terminal classification of a job.
type Outcome string

const (
	OutcomeSkipped         Outcome = "skipped"
	OutcomeRemuxSucceeded  Outcome = "remuxed"
	OutcomeEncodeSucceeded Outcome = "encoded"
	OutcomeFailed          Outcome = "failed"
)

// Succeeded reports whether the outcome produced a new output file.
func (o Outcome) Succeeded() bool {
	return o == OutcomeRemuxSucceeded || o == OutcomeEncodeSucceeded
}

// Job is one asset on its way to one output file.
type Job struct {
	ID         string          `json:"id"` // ULID, sorts in creation order
	Asset      scan.MediaAsset `json:"asset"`
	OutputPath string          `json:"output_path"`
	Engine     string          `json:"engine"`
	Quality    int             `json:"quality"`
	State      State           `json:"state"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewJob creates an idle job.
func NewJob(asset scan.MediaAsset, outputPath, engineName string, quality int) *Job {
	return &Job{
		ID:         ulid.Make().String(),
		Asset:      asset,
		OutputPath: outputPath,
		Engine:     engineName,
		Quality:    quality,
		State:      StateIdle,
		CreatedAt:  time.Now(),
	}
}

// IsTerminal returns true if the job is in a terminal state
func (j *Job) IsTerminal() bool {
	switch j.State {
	case StateSkipped, StateRemuxSucceeded, StateEncodeSucceeded, StateFailed:
		return true
	}
	return false
}

// Result is reported exactly once per job.
type Result struct {
	Job        *Job          `json:"job"`
	Outcome    Outcome       `json:"outcome"`
	Err        error         `json:"-"`
	OutputSize int64         `json:"output_size,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
	// RemuxErr is set when a remux was tried and the job fell back to encoding.
	RemuxErr error `json:"-"`
}

// Detail returns the error text, or "" for a clean result.
func (r Result) Detail() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// SpaceSaved returns source size minus output size for successful results.
func (r Result) SpaceSaved() int64 {
	if !r.Outcome.Succeeded() {
		return 0
	}
	return r.Job.Asset.Size - r.OutputSize
}
