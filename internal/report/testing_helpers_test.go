package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gwlsn/shrinkbatch/internal/ffmpeg"
	"github.com/gwlsn/shrinkbatch/internal/jobs"
	"github.com/gwlsn/shrinkbatch/internal/scan"
)

// fakeProber returns a small ffprobe-like document per path.
type fakeProber struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls []string
}

var errProbe = errors.New("ffprobe exited 1")

func (p *fakeProber) Probe(_ context.Context, path string) (*ffmpeg.ProbeResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, path)
	if p.fail[path] {
		return nil, errProbe
	}
	raw := fmt.Sprintf(`{"format":{"filename":%q},"streams":[{"codec_type":"video"}]}`, path)
	return &ffmpeg.ProbeResult{Path: path, Raw: json.RawMessage(raw)}, nil
}

func newResult(rel string, size int64, outcome jobs.Outcome, outSize int64, err error) jobs.Result {
	asset := scan.MediaAsset{
		Path:    "/in/" + rel,
		RelPath: rel,
		Size:    size,
	}
	out := "/out/" + rel[:len(rel)-len(".mkv")] + scan.OutputSuffix + scan.OutputExt
	job := jobs.NewJob(asset, out, "ffmpeg", 30)
	return jobs.Result{
		Job:        job,
		Outcome:    outcome,
		Err:        err,
		OutputSize: outSize,
		Elapsed:    time.Second,
	}
}
