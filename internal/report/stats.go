package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gwlsn/shrinkbatch/internal/ffmpeg"
)

// StatsDirName is the directory under the output root that holds stats
// records and the default history database.
const StatsDirName = "_stats"

// ErrProbeFailed means a stats record could not be built because a file could
// not be probed. It never changes the job's outcome.
var ErrProbeFailed = errors.New("probe failed")

// Prober returns container and stream metadata for a media file.
// *ffmpeg.Prober is the production Prober.
type Prober interface {
	Probe(ctx context.Context, path string) (*ffmpeg.ProbeResult, error)
}

// StatsRecord is the JSON document written per produced output.
type StatsRecord struct {
	Input       string          `json:"input"`
	Output      string          `json:"output"`
	Engine      string          `json:"engine"`
	Timestamp   string          `json:"timestamp"`
	InputProbe  json.RawMessage `json:"input_probe"`
	OutputProbe json.RawMessage `json:"output_probe"`
}

// StatsWriter writes one StatsRecord per output into <output_root>/_stats.
type StatsWriter struct {
	root   string
	dir    string
	prober Prober
	now    func() time.Time
}

// NewStatsWriter creates a writer for records under outputRoot.
func NewStatsWriter(outputRoot string, prober Prober) *StatsWriter {
	return &StatsWriter{
		root:   outputRoot,
		dir:    filepath.Join(outputRoot, StatsDirName),
		prober: prober,
		now:    time.Now,
	}
}

// Dir returns the directory records are written to.
func (w *StatsWriter) Dir() string {
	return w.dir
}

// PathFor returns the record path for an output file. The output's directory
// relative to the output root is mirrored under _stats, so same-stem outputs
// in different directories get separate records. Outputs outside the root
// fall back to the bare stem.
func (w *StatsWriter) PathFor(outputPath string) string {
	rel, err := filepath.Rel(w.root, outputPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = filepath.Base(outputPath)
	}
	return filepath.Join(w.dir, strings.TrimSuffix(rel, filepath.Ext(rel))+".json")
}

// Write probes both files and writes the record, returning its path.
func (w *StatsWriter) Write(ctx context.Context, inputPath, outputPath, engineName string) (string, error) {
	inProbe, err := w.probe(ctx, inputPath)
	if err != nil {
		return "", err
	}
	outProbe, err := w.probe(ctx, outputPath)
	if err != nil {
		return "", err
	}

	record := StatsRecord{
		Input:       inputPath,
		Output:      outputPath,
		Engine:      engineName,
		Timestamp:   w.now().UTC().Format("2006-01-02T15:04:05.000000Z"),
		InputProbe:  inProbe,
		OutputProbe: outProbe,
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode stats record: %w", err)
	}

	path := w.PathFor(outputPath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create stats directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write stats record: %w", err)
	}
	return path, nil
}

func (w *StatsWriter) probe(ctx context.Context, path string) (json.RawMessage, error) {
	res, err := w.prober.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrProbeFailed, path, err)
	}
	if len(res.Raw) == 0 || !json.Valid(res.Raw) {
		return nil, fmt.Errorf("%w: %s: no metadata", ErrProbeFailed, path)
	}
	return res.Raw, nil
}
