package ffmpeg

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

const sampleProbeJSON = `{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "h264", "width": 1280, "height": 720, "r_frame_rate": "30000/1001"},
    {"index": 1, "codec_type": "audio", "codec_name": "aac"},
    {"index": 2, "codec_type": "audio", "codec_name": "ac3"},
    {"index": 3, "codec_type": "subtitle", "codec_name": "subrip"}
  ],
  "format": {"filename": "clip.mkv", "format_name": "matroska,webm", "duration": "10.500000", "size": "1048576", "bit_rate": "798915"}
}`

func TestParseProbeOutput(t *testing.T) {
	result, err := ParseProbeOutput("clip.mkv", []byte(sampleProbeJSON))
	if err != nil {
		t.Fatalf("ParseProbeOutput failed: %v", err)
	}

	if result.VideoCodec != "h264" {
		t.Errorf("expected video codec h264, got %s", result.VideoCodec)
	}
	if result.AudioCodec != "aac" {
		t.Errorf("expected first audio codec aac, got %s", result.AudioCodec)
	}
	if result.Width != 1280 || result.Height != 720 {
		t.Errorf("expected 1280x720, got %dx%d", result.Width, result.Height)
	}
	if result.Duration != 10500*time.Millisecond {
		t.Errorf("expected duration 10.5s, got %v", result.Duration)
	}
	if result.Size != 1048576 {
		t.Errorf("expected size 1048576, got %d", result.Size)
	}
	if result.IsHEVC {
		t.Error("h264 should not be flagged as HEVC")
	}
	if result.FrameRate < 29.96 || result.FrameRate > 29.98 {
		t.Errorf("expected ~29.97 fps, got %f", result.FrameRate)
	}

	// Raw must be the untouched document so stats records keep every field
	var raw map[string]any
	if err := json.Unmarshal(result.Raw, &raw); err != nil {
		t.Fatalf("Raw is not valid JSON: %v", err)
	}
	if streams, ok := raw["streams"].([]any); !ok || len(streams) != 4 {
		t.Errorf("expected 4 raw streams, got %v", raw["streams"])
	}
}

func TestParseProbeOutputInvalid(t *testing.T) {
	if _, err := ParseProbeOutput("x", []byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestProbe(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping ffprobe test in short mode")
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed")
	}

	// Generate a tiny clip to probe
	testFile := filepath.Join(t.TempDir(), "sample.mp4")
	gen := exec.Command("ffmpeg", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "testsrc=size=320x240:rate=25:duration=1",
		"-c:v", "mpeg4", testFile)
	if err := gen.Run(); err != nil {
		t.Skipf("could not generate sample: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := NewProber("ffprobe").Probe(ctx, testFile)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if result.Path != testFile {
		t.Errorf("expected path %s, got %s", testFile, result.Path)
	}
	if result.Width != 320 || result.Height != 240 {
		t.Errorf("expected 320x240, got %dx%d", result.Width, result.Height)
	}
	if len(result.Raw) == 0 {
		t.Error("expected raw probe document")
	}
}

func TestProbeNonExistent(t *testing.T) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed")
	}
	missing := filepath.Join(t.TempDir(), "nope.mkv")
	if _, err := os.Stat(missing); !os.IsNotExist(err) {
		t.Fatal("test file unexpectedly exists")
	}

	_, err := NewProber("ffprobe").Probe(context.Background(), missing)
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestIsHEVCCodec(t *testing.T) {
	tests := []struct {
		codec    string
		expected bool
	}{
		{"hevc", true},
		{"HEVC", true},
		{"h265", true},
		{"x265", true},
		{"h264", false},
		{"av1", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := isHEVCCodec(tt.codec); got != tt.expected {
			t.Errorf("isHEVCCodec(%q) = %v, expected %v", tt.codec, got, tt.expected)
		}
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"30/1", 30},
		{"25", 25},
		{"0/0", 0},
		{"", 0},
		{"24/0", 0},
	}

	for _, tt := range tests {
		if got := parseFrameRate(tt.input); got != tt.expected {
			t.Errorf("parseFrameRate(%q) = %f, expected %f", tt.input, got, tt.expected)
		}
	}
}
