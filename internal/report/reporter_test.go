package report

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwlsn/shrinkbatch/internal/jobs"
	"github.com/gwlsn/shrinkbatch/internal/store"
)

func feed(results ...jobs.Result) <-chan jobs.Result {
	ch := make(chan jobs.Result, len(results))
	for _, r := range results {
		ch <- r
	}
	close(ch)
	return ch
}

func TestMarker(t *testing.T) {
	tests := []struct {
		name   string
		result jobs.Result
		prefix string
		want   []string
	}{
		{
			name:   "skipped",
			result: newResult("a.mkv", 100, jobs.OutcomeSkipped, 0, jobs.ErrInterrupted),
			prefix: "⏭ skipped a.mkv",
			want:   []string{"interrupted"},
		},
		{
			name:   "remuxed",
			result: newResult("b.mkv", 100, jobs.OutcomeRemuxSucceeded, 90, nil),
			prefix: "🔁 remuxed b.mkv",
			want:   []string{"/out/b_compressed.mp4", "90 B"},
		},
		{
			name:   "encoded",
			result: newResult("c.mkv", 2000, jobs.OutcomeEncodeSucceeded, 1000, nil),
			prefix: "✅ encoded c.mkv",
			want:   []string{"2.0 kB → 1.0 kB", "-50%"},
		},
		{
			name:   "failed",
			result: newResult("d.mkv", 100, jobs.OutcomeFailed, 0, jobs.ErrEncodeFailed),
			prefix: "❌ failed d.mkv",
			want:   []string{"encode failed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := Marker(tt.result)
			assert.True(t, strings.HasPrefix(line, tt.prefix), "got %q", line)
			for _, w := range tt.want {
				assert.Contains(t, line, w)
			}
		})
	}
}

func TestReporter_ConsumeAggregates(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(&out, Options{})

	summary := r.Consume(context.Background(), feed(
		newResult("a.mkv", 1000, jobs.OutcomeEncodeSucceeded, 400, nil),
		newResult("b.mkv", 500, jobs.OutcomeRemuxSucceeded, 500, nil),
		newResult("c.mkv", 700, jobs.OutcomeSkipped, 300, jobs.ErrOutputExists),
		newResult("d.mkv", 900, jobs.OutcomeFailed, 0, jobs.ErrEncodeFailed),
	))

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 1, summary.Encoded)
	assert.Equal(t, 1, summary.Remuxed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Failed)
	assert.True(t, summary.HasFailures())

	// Skipped and failed jobs contribute no bytes
	assert.Equal(t, int64(1500), summary.InputBytes)
	assert.Equal(t, int64(900), summary.OutputBytes)
	assert.Equal(t, int64(600), summary.SpaceSaved())

	text := out.String()
	assert.Equal(t, 1, strings.Count(text, "✅"))
	assert.Equal(t, 1, strings.Count(text, "🔁"))
	assert.Equal(t, 1, strings.Count(text, "⏭"))
	assert.Equal(t, 1, strings.Count(text, "❌"))
	assert.Contains(t, text, "4 video(s): 1 encoded, 1 remuxed, 1 skipped, 1 failed")
	assert.Contains(t, text, "saved 600 B")
}

func TestReporter_EmptyRun(t *testing.T) {
	var out bytes.Buffer
	summary := NewReporter(&out, Options{}).Consume(context.Background(), feed())

	assert.Equal(t, 0, summary.Total)
	assert.Contains(t, out.String(), "0 video(s)")
	assert.NotContains(t, out.String(), "saved")
}

func TestSummary_Savings_Grew(t *testing.T) {
	s := Summary{Encoded: 1, InputBytes: 1000, OutputBytes: 1500}
	assert.Contains(t, s.Savings(), "grew by 500 B")
	assert.Contains(t, s.Savings(), "+50%")
}

func TestReporter_WritesStatsForSuccessOnly(t *testing.T) {
	root := t.TempDir()
	prober := &fakeProber{}
	stats := NewStatsWriter(root, prober)

	var out bytes.Buffer
	r := NewReporter(&out, Options{Stats: stats})
	r.Consume(context.Background(), feed(
		newResult("a.mkv", 1000, jobs.OutcomeEncodeSucceeded, 400, nil),
		newResult("b.mkv", 1000, jobs.OutcomeFailed, 0, jobs.ErrEncodeFailed),
		newResult("c.mkv", 1000, jobs.OutcomeSkipped, 0, jobs.ErrInterrupted),
	))

	assert.FileExists(t, filepath.Join(root, StatsDirName, "a_compressed.json"))
	assert.NoFileExists(t, filepath.Join(root, StatsDirName, "b_compressed.json"))
	assert.NoFileExists(t, filepath.Join(root, StatsDirName, "c_compressed.json"))
	assert.Len(t, prober.calls, 2)
}

func TestReporter_ProbeFailureDoesNotChangeOutcome(t *testing.T) {
	root := t.TempDir()
	prober := &fakeProber{fail: map[string]bool{"/in/a.mkv": true}}

	var out bytes.Buffer
	r := NewReporter(&out, Options{Stats: NewStatsWriter(root, prober)})
	summary := r.Consume(context.Background(), feed(
		newResult("a.mkv", 1000, jobs.OutcomeEncodeSucceeded, 400, nil),
	))

	assert.Equal(t, 1, summary.Encoded)
	assert.Equal(t, 0, summary.Failed)
	assert.Contains(t, out.String(), "✅ encoded a.mkv")
	assert.NoFileExists(t, filepath.Join(root, StatsDirName, "a_compressed.json"))
}

func TestReporter_RecordsHistory(t *testing.T) {
	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer db.Close()

	run := &store.Run{InputRoot: "/in", OutputRoot: "/out", Engine: "ffmpeg", Quality: 30, Workers: 2}
	require.NoError(t, db.BeginRun(run))

	var out bytes.Buffer
	r := NewReporter(&out, Options{History: db, Run: run})
	r.Consume(context.Background(), feed(
		newResult("a.mkv", 1000, jobs.OutcomeEncodeSucceeded, 400, nil),
		newResult("b.mkv", 800, jobs.OutcomeFailed, 0, jobs.ErrEncodeFailed),
	))

	got, err := db.GetRun(run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Finished())
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, 1, got.Encoded)
	assert.Equal(t, 1, got.Failed)
	assert.Equal(t, int64(600), got.SpaceSaved())

	results, err := db.GetResults(run.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "encoded", results[0].Outcome)
	assert.Equal(t, int64(400), results[0].OutputSize)
	assert.Equal(t, "failed", results[1].Outcome)
	assert.NotEmpty(t, results[1].Error)

	saved, err := db.LifetimeSaved()
	require.NoError(t, err)
	assert.Equal(t, int64(600), saved)
}
