package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gwlsn/shrinkbatch/internal/logger"
)

// ErrEmptyOutput is returned when the encoder exited cleanly but left no
// usable file behind.
var ErrEmptyOutput = errors.New("output missing or empty")

// TranscodeResult contains the result of a transcode operation
type TranscodeResult struct {
	OutputPath string        `json:"output_path"`
	OutputSize int64         `json:"output_size"`
	Duration   time.Duration `json:"duration"` // How long the transcode took
}

// TranscodeError represents an encoder failure with the process output attached
type TranscodeError struct {
	Err    error
	Stderr string // Full stderr output
}

func (e *TranscodeError) Error() string {
	return e.Err.Error()
}

func (e *TranscodeError) Unwrap() error {
	return e.Err
}

// Tail returns the last n non-empty stderr lines joined with " | ".
func (e *TranscodeError) Tail(n int) string {
	return tailLines(e.Stderr, n)
}

// Transcoder runs an external encoder binary (ffmpeg or HandBrakeCLI) that
// writes a single output file.
type Transcoder struct {
	binary string
}

// NewTranscoder creates a new Transcoder for the given executable path
func NewTranscoder(binary string) *Transcoder {
	return &Transcoder{binary: binary}
}

// Binary returns the executable this transcoder runs.
func (t *Transcoder) Binary() string {
	return t.binary
}

// Run executes the encoder with args and checks that outputPath exists with a
// nonzero size. On any failure the partial output is removed.
func (t *Transcoder) Run(ctx context.Context, args []string, outputPath string) (*TranscodeResult, error) {
	startTime := time.Now()

	cmd := exec.CommandContext(ctx, t.binary, args...)

	logger.Debug("Encoder command", "binary", filepath.Base(t.binary), "args", strings.Join(args, " "))

	// Capture stderr for error messages
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// Clean up partial output file
		os.Remove(outputPath)
		stderrOutput := stderr.String()
		if stderrOutput != "" {
			logger.Debug("Encoder failed", "error", err, "stderr", tailLines(stderrOutput, 5))
		}
		return nil, &TranscodeError{
			Err:    fmt.Errorf("%s failed: %w", filepath.Base(t.binary), err),
			Stderr: stderrOutput,
		}
	}

	outputInfo, err := os.Stat(outputPath)
	if err != nil || outputInfo.Size() == 0 {
		os.Remove(outputPath)
		return nil, &TranscodeError{
			Err:    fmt.Errorf("%s: %w", outputPath, ErrEmptyOutput),
			Stderr: stderr.String(),
		}
	}

	return &TranscodeResult{
		OutputPath: outputPath,
		OutputSize: outputInfo.Size(),
		Duration:   time.Since(startTime),
	}, nil
}

// PreserveModTime copies the source modification time onto the output so
// that the compressed copy sorts like the original.
func PreserveModTime(sourcePath, outputPath string) error {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to stat source file: %w", err)
	}
	return os.Chtimes(outputPath, info.ModTime(), info.ModTime())
}

func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return strings.Join(kept, " | ")
}
