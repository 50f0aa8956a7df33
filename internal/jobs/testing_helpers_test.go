package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gwlsn/shrinkbatch/internal/engine"
	"github.com/gwlsn/shrinkbatch/internal/ffmpeg"
	"github.com/gwlsn/shrinkbatch/internal/scan"
)

// fakeEngine writes content to the output unless fail returns an error for the mode.
type fakeEngine struct {
	streamCopy bool
	fail       func(mode engine.Mode) error
	// content written on success; empty means "output"
	content string

	mu    sync.Mutex
	calls []engine.Mode
	// ctxErrs records ctx.Err() as seen by each call
	ctxErrs []error
}

func (e *fakeEngine) Capability() engine.Capability {
	return engine.Capability{Name: "fake", Available: true, StreamCopy: e.streamCopy}
}

func (e *fakeEngine) Compress(ctx context.Context, input, output string, quality int, mode engine.Mode) (*ffmpeg.TranscodeResult, error) {
	e.mu.Lock()
	e.calls = append(e.calls, mode)
	e.ctxErrs = append(e.ctxErrs, ctx.Err())
	e.mu.Unlock()

	// Leave a partial file behind either way
	content := e.content
	if content == "" {
		content = "output"
	}
	if err := os.WriteFile(output, []byte(content), 0644); err != nil {
		return nil, err
	}
	if e.fail != nil {
		if err := e.fail(mode); err != nil {
			return nil, err
		}
	}
	return &ffmpeg.TranscodeResult{OutputPath: output, OutputSize: int64(len(content)), Duration: time.Millisecond}, nil
}

func (e *fakeEngine) modes() []engine.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]engine.Mode(nil), e.calls...)
}

var errFake = errors.New("exit status 1")

func failMode(m engine.Mode) func(engine.Mode) error {
	return func(mode engine.Mode) error {
		if mode == m {
			return errFake
		}
		return nil
	}
}

// newSource writes a source file and returns a job for it.
func newSource(t *testing.T, dir, name string) *Job {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("source video bytes"), 0644); err != nil {
		t.Fatalf("failed to write source: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("failed to stat source: %v", err)
	}
	asset := scan.MediaAsset{
		Path:    path,
		RelPath: name,
		Ext:     strings.ToLower(filepath.Ext(name)),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	return NewJob(asset, OutputPath(asset, filepath.Join(dir, "out"), false), "fake", 30)
}
