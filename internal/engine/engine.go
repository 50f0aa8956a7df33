// Package engine wraps the external encoders behind one interface and picks
// the one a run will use.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/gwlsn/shrinkbatch/internal/ffmpeg"
)

// Mode selects what Compress does with the input.
type Mode int

const (
	// ModeEncode re-encodes video to HEVC.
	ModeEncode Mode = iota
	// ModeRemux copies streams into an MP4 container without re-encoding.
	ModeRemux
)

func (m Mode) String() string {
	if m == ModeRemux {
		return "remux"
	}
	return "encode"
}

// ErrStreamCopyUnsupported is returned for ModeRemux on engines that cannot stream copy.
var ErrStreamCopyUnsupported = errors.New("engine does not support stream copy")

// Capability describes a resolved engine. It is fixed for a run.
type Capability struct {
	Name       string `json:"name"`
	Available  bool   `json:"available"`
	StreamCopy bool   `json:"stream_copy"`
	Hardware   bool   `json:"hardware"`
	Binary     string `json:"binary"`
}

// Engine turns one input into one MP4 output.
type Engine interface {
	Capability() Capability
	Compress(ctx context.Context, input, output string, quality int, mode Mode) (*ffmpeg.TranscodeResult, error)
}

// HardwareEngine encodes through an ffmpeg hardware encoder. Quality codes are
// mapped to a target bitrate.
type HardwareEngine struct {
	name         string
	accel        ffmpeg.HWAccel
	transcoder   *ffmpeg.Transcoder
	table        *ffmpeg.BitrateTable
	audioBitrate string
}

// NewHardwareEngine creates an engine for accel backed by the ffmpeg at ffmpegPath.
func NewHardwareEngine(name string, accel ffmpeg.HWAccel, ffmpegPath string, table *ffmpeg.BitrateTable, audioBitrate string) *HardwareEngine {
	return &HardwareEngine{
		name:         name,
		accel:        accel,
		transcoder:   ffmpeg.NewTranscoder(ffmpegPath),
		table:        table,
		audioBitrate: audioBitrate,
	}
}

func (e *HardwareEngine) Capability() Capability {
	return Capability{
		Name:       e.name,
		Available:  true,
		StreamCopy: true,
		Hardware:   true,
		Binary:     e.transcoder.Binary(),
	}
}

// Bitrate returns the kbit/s used for a quality code.
func (e *HardwareEngine) Bitrate(quality int) int {
	return e.table.Lookup(quality)
}

func (e *HardwareEngine) Compress(ctx context.Context, input, output string, quality int, mode Mode) (*ffmpeg.TranscodeResult, error) {
	var args []string
	if mode == ModeRemux {
		args = ffmpeg.RemuxArgs(input, output)
	} else {
		args = ffmpeg.HardwareArgs(e.accel, input, output, e.Bitrate(quality), e.audioBitrate)
	}
	return e.transcoder.Run(ctx, args, output)
}

// SoftwareEngine encodes with libx265; the quality code is the CRF.
type SoftwareEngine struct {
	transcoder   *ffmpeg.Transcoder
	audioBitrate string
}

// NewSoftwareEngine creates an engine backed by the ffmpeg at ffmpegPath.
func NewSoftwareEngine(ffmpegPath, audioBitrate string) *SoftwareEngine {
	return &SoftwareEngine{
		transcoder:   ffmpeg.NewTranscoder(ffmpegPath),
		audioBitrate: audioBitrate,
	}
}

func (e *SoftwareEngine) Capability() Capability {
	return Capability{
		Name:       NameFFmpeg,
		Available:  true,
		StreamCopy: true,
		Binary:     e.transcoder.Binary(),
	}
}

func (e *SoftwareEngine) Compress(ctx context.Context, input, output string, quality int, mode Mode) (*ffmpeg.TranscodeResult, error) {
	var args []string
	if mode == ModeRemux {
		args = ffmpeg.RemuxArgs(input, output)
	} else {
		args = ffmpeg.SoftwareArgs(input, output, quality, e.audioBitrate)
	}
	return e.transcoder.Run(ctx, args, output)
}

// HandBrakeEngine encodes with HandBrakeCLI; the quality code is passed as -q.
type HandBrakeEngine struct {
	transcoder *ffmpeg.Transcoder
	preset     string
}

// NewHandBrakeEngine creates an engine backed by HandBrakeCLI at path.
func NewHandBrakeEngine(path, preset string) *HandBrakeEngine {
	return &HandBrakeEngine{
		transcoder: ffmpeg.NewTranscoder(path),
		preset:     preset,
	}
}

func (e *HandBrakeEngine) Capability() Capability {
	return Capability{
		Name:      NameHandBrake,
		Available: true,
		Binary:    e.transcoder.Binary(),
	}
}

func (e *HandBrakeEngine) Compress(ctx context.Context, input, output string, quality int, mode Mode) (*ffmpeg.TranscodeResult, error) {
	if mode == ModeRemux {
		return nil, fmt.Errorf("%s: %w", NameHandBrake, ErrStreamCopyUnsupported)
	}
	return e.transcoder.Run(ctx, ffmpeg.HandBrakeArgs(input, output, e.preset, quality), output)
}
