package store

import (
	"time"

	"github.com/google/uuid"
)

// Store defines the persistence interface for run history.
// Implementations must be safe for concurrent use.
type Store interface {
	// BeginRun records the start of a run. An empty ID is filled in.
	BeginRun(run *Run) error

	// RecordResult appends one job result to a run.
	RecordResult(rec *ResultRecord) error

	// FinishRun stores the final counters of a run and adds its savings to
	// the lifetime total.
	FinishRun(run *Run) error

	// GetRun retrieves a run by ID. Returns nil if not found.
	GetRun(id string) (*Run, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]*Run, error)

	// GetResults returns a run's results in the order they were recorded.
	GetResults(runID string) ([]*ResultRecord, error)

	// LifetimeSaved returns the bytes saved across all finished runs.
	LifetimeSaved() (int64, error)

	// Close closes the store and releases resources.
	Close() error
}

// Run is one invocation of the batch command.
type Run struct {
	ID         string    `json:"id"`
	InputRoot  string    `json:"input_root"`
	OutputRoot string    `json:"output_root"`
	Engine     string    `json:"engine"`
	Quality    int       `json:"quality"`
	Workers    int       `json:"workers"`
	Remux      bool      `json:"remux"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`

	Total       int   `json:"total"`
	Skipped     int   `json:"skipped"`
	Remuxed     int   `json:"remuxed"`
	Encoded     int   `json:"encoded"`
	Failed      int   `json:"failed"`
	InputBytes  int64 `json:"input_bytes"`
	OutputBytes int64 `json:"output_bytes"`
}

// SpaceSaved returns input bytes minus output bytes of successful jobs.
func (r *Run) SpaceSaved() int64 {
	return r.InputBytes - r.OutputBytes
}

// Finished reports whether FinishRun was recorded.
func (r *Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// ResultRecord is one job outcome within a run.
type ResultRecord struct {
	RunID       string        `json:"run_id"`
	JobID       string        `json:"job_id"`
	InputPath   string        `json:"input_path"`
	OutputPath  string        `json:"output_path"`
	Outcome     string        `json:"outcome"`
	Error       string        `json:"error,omitempty"`
	InputSize   int64         `json:"input_size"`
	OutputSize  int64         `json:"output_size"`
	Elapsed     time.Duration `json:"elapsed"`
	CompletedAt time.Time     `json:"completed_at"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}
