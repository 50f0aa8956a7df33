package ffmpeg

import (
	"context"
	"os/exec"
	"sync"
	"time"

	"github.com/gwlsn/shrinkbatch/internal/logger"
)

// HWAccel represents a hardware acceleration method
type HWAccel string

const (
	HWAccelNone         HWAccel = "none"         // Software encoding
	HWAccelVideoToolbox HWAccel = "videotoolbox" // Apple Silicon / Intel Mac
	HWAccelNVENC        HWAccel = "nvenc"        // NVIDIA GPU
)

// HWEncoder contains info about an HEVC encoder
type HWEncoder struct {
	Accel       HWAccel `json:"accel"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Encoder     string  `json:"encoder"` // FFmpeg encoder name (e.g., hevc_videotoolbox)
}

// Encoders lists the HEVC encoders this tool drives through ffmpeg.
var Encoders = map[HWAccel]HWEncoder{
	HWAccelVideoToolbox: {
		Accel:       HWAccelVideoToolbox,
		Name:        "VideoToolbox HEVC",
		Description: "Apple Silicon / Intel Mac hardware HEVC encoding",
		Encoder:     "hevc_videotoolbox",
	},
	HWAccelNVENC: {
		Accel:       HWAccelNVENC,
		Name:        "NVENC HEVC",
		Description: "NVIDIA GPU hardware HEVC encoding",
		Encoder:     "hevc_nvenc",
	},
	HWAccelNone: {
		Accel:       HWAccelNone,
		Name:        "Software HEVC",
		Description: "CPU-based HEVC encoding (libx265)",
		Encoder:     "libx265",
	},
}

// encoderCache remembers test-encode results per ffmpeg binary and encoder.
type encoderCache struct {
	mu      sync.RWMutex
	results map[string]bool
}

var detected = &encoderCache{results: make(map[string]bool)}

// testEncodeTimeout bounds a single test encode. A wedged driver must not
// stall engine selection.
const testEncodeTimeout = 10 * time.Second

// EncoderWorks reports whether ffmpegPath can actually encode one frame with
// the encoder for accel. Results are cached for the life of the process.
func EncoderWorks(ctx context.Context, ffmpegPath string, accel HWAccel) bool {
	enc, ok := Encoders[accel]
	if !ok {
		return false
	}
	key := ffmpegPath + "|" + enc.Encoder

	detected.mu.RLock()
	works, cached := detected.results[key]
	detected.mu.RUnlock()
	if cached {
		return works
	}

	works = testEncoder(ctx, ffmpegPath, accel, enc.Encoder)
	logger.Debug("Encoder test", "encoder", enc.Encoder, "available", works)

	detected.mu.Lock()
	detected.results[key] = works
	detected.mu.Unlock()
	return works
}

// ResetDetection clears cached test-encode results.
func ResetDetection() {
	detected.mu.Lock()
	detected.results = make(map[string]bool)
	detected.mu.Unlock()
}

func testEncoder(ctx context.Context, ffmpegPath string, accel HWAccel, encoder string) bool {
	ctx, cancel := context.WithTimeout(ctx, testEncodeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, ffmpegPath, testEncodeArgs(accel, encoder)...)
	return cmd.Run() == nil
}

// testEncodeArgs builds a one-frame encode of a lavfi test pattern to the null
// muxer. 256x256 stays above hardware minimum resolutions.
func testEncodeArgs(accel HWAccel, encoder string) []string {
	var args []string
	if accel == HWAccelNVENC {
		args = append(args, "-hwaccel", "cuda")
	}
	return append(args,
		"-hide_banner",
		"-f", "lavfi",
		"-i", "color=c=black:s=256x256:d=0.1",
		"-frames:v", "1",
		"-c:v", encoder,
		"-f", "null",
		"-",
	)
}
