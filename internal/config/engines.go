package config

// ValidEngines contains the values accepted for the engine setting.
// "auto" lets the selector pick by platform priority.
var ValidEngines = []string{
	"auto",         // platform priority order (default)
	"videotoolbox", // Apple hardware HEVC via ffmpeg
	"nvenc",        // NVIDIA hardware HEVC via ffmpeg
	"handbrake",    // HandBrakeCLI
	"ffmpeg",       // software libx265
}

// DefaultEngine is the default engine selection.
const DefaultEngine = "auto"

// IsValidEngine returns true if the engine name is valid.
func IsValidEngine(name string) bool {
	for _, valid := range ValidEngines {
		if name == valid {
			return true
		}
	}
	return false
}

// ValidLogFormats contains the supported log handler formats.
var ValidLogFormats = []string{"text", "json"}

// IsValidLogFormat returns true if the log format is supported.
func IsValidLogFormat(format string) bool {
	for _, valid := range ValidLogFormats {
		if format == valid {
			return true
		}
	}
	return false
}
