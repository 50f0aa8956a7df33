package engine

import (
	"github.com/gwlsn/shrinkbatch/internal/config"
	"github.com/gwlsn/shrinkbatch/internal/ffmpeg"
	"github.com/gwlsn/shrinkbatch/internal/platform"
)

// Engine names as accepted by --engine.
const (
	NameAuto         = "auto"
	NameVideoToolbox = "videotoolbox"
	NameNVENC        = "nvenc"
	NameHandBrake    = "handbrake"
	NameFFmpeg       = "ffmpeg"
)

// nvidiaSMI ships with the NVIDIA driver; its presence is the cheap signal
// that a GPU is usable before running a test encode.
const nvidiaSMI = "nvidia-smi"

type definition struct {
	name       string
	accel      ffmpeg.HWAccel // HWAccelNone for non-ffmpeg-hardware engines
	hardware   bool
	streamCopy bool
	// platforms the engine can run on
	platforms []platform.Platform
}

var definitions = map[string]definition{
	NameVideoToolbox: {
		name:       NameVideoToolbox,
		accel:      ffmpeg.HWAccelVideoToolbox,
		hardware:   true,
		streamCopy: true,
		platforms:  []platform.Platform{platform.MacOS},
	},
	NameNVENC: {
		name:       NameNVENC,
		accel:      ffmpeg.HWAccelNVENC,
		hardware:   true,
		streamCopy: true,
		platforms:  []platform.Platform{platform.Linux, platform.Windows},
	},
	NameHandBrake: {
		name:      NameHandBrake,
		accel:     ffmpeg.HWAccelNone,
		platforms: []platform.Platform{platform.MacOS, platform.Linux, platform.Windows},
	},
	NameFFmpeg: {
		name:       NameFFmpeg,
		accel:      ffmpeg.HWAccelNone,
		streamCopy: true,
		platforms:  []platform.Platform{platform.MacOS, platform.Linux, platform.Windows, platform.Android},
	},
}

// priorities lists auto-selection order per platform, most preferred first.
var priorities = map[platform.Platform][]string{
	platform.MacOS:   {NameVideoToolbox, NameHandBrake, NameFFmpeg},
	platform.Linux:   {NameNVENC, NameHandBrake, NameFFmpeg},
	platform.Windows: {NameNVENC, NameFFmpeg, NameHandBrake},
	platform.Android: {NameFFmpeg},
}

// Priority returns the auto-selection order for p. Nil for unknown platforms.
func Priority(p platform.Platform) []string {
	return append([]string(nil), priorities[p]...)
}

// IsKnown reports whether name is a concrete engine.
func IsKnown(name string) bool {
	_, ok := definitions[name]
	return ok
}

// IsViable reports whether engine name can run on p at all.
func IsViable(name string, p platform.Platform) bool {
	def, ok := definitions[name]
	if !ok {
		return false
	}
	for _, candidate := range def.platforms {
		if candidate == p {
			return true
		}
	}
	return false
}

// Requirements maps every engine to the executables it needs, honouring the
// configured binary paths.
func Requirements(cfg *config.Config) map[string][]string {
	return map[string][]string{
		NameVideoToolbox: {cfg.FFmpegPath},
		NameNVENC:        {cfg.FFmpegPath, nvidiaSMI},
		NameHandBrake:    {cfg.HandBrakePath},
		NameFFmpeg:       {cfg.FFmpegPath},
	}
}

// Status is one row of the engines listing.
type Status struct {
	Name       string
	Viable     bool
	Installed  bool
	Hardware   bool
	StreamCopy bool
	Rank       int // 1-based position in the platform priority, 0 if not ranked
}

// Describe reports every known engine against info, ranked engines first.
func Describe(info *platform.Info) []Status {
	order := Priority(info.Platform)
	seen := make(map[string]bool)
	var rows []Status
	add := func(name string, rank int) {
		def := definitions[name]
		rows = append(rows, Status{
			Name:       name,
			Viable:     IsViable(name, info.Platform),
			Installed:  info.IsInstalled(name),
			Hardware:   def.hardware,
			StreamCopy: def.streamCopy,
			Rank:       rank,
		})
		seen[name] = true
	}
	for i, name := range order {
		add(name, i+1)
	}
	for _, name := range []string{NameVideoToolbox, NameNVENC, NameHandBrake, NameFFmpeg} {
		if !seen[name] {
			add(name, 0)
		}
	}
	return rows
}

// build constructs the engine name using binaries resolved in info.
func build(name string, cfg *config.Config, info *platform.Info) Engine {
	ffmpegPath := resolved(info, cfg.FFmpegPath)
	switch name {
	case NameVideoToolbox, NameNVENC:
		def := definitions[name]
		return NewHardwareEngine(name, def.accel, ffmpegPath, ffmpeg.NewBitrateTable(cfg.BitrateTable), cfg.AudioBitrate)
	case NameHandBrake:
		return NewHandBrakeEngine(resolved(info, cfg.HandBrakePath), cfg.HandBrakePreset)
	default:
		return NewSoftwareEngine(ffmpegPath, cfg.AudioBitrate)
	}
}

func resolved(info *platform.Info, bin string) string {
	if info != nil {
		if p, ok := info.Binaries[bin]; ok {
			return p
		}
	}
	return bin
}
