package engine

import "errors"

var (
	// ErrNoEngine is returned when no engine is installed after the install attempt.
	ErrNoEngine = errors.New("no usable engine")
	// ErrUnknownEngine is returned for an --engine value that names nothing.
	ErrUnknownEngine = errors.New("unknown engine")
	// ErrNotViable is returned when an engine cannot run on this platform.
	ErrNotViable = errors.New("engine not supported on this platform")
	// ErrNotInstalled is returned when an explicitly requested engine is missing.
	ErrNotInstalled = errors.New("engine not installed")
	// ErrUnsupportedPlatform is returned when the platform is not recognised.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrNoInstaller is returned by the bootstrapper when it has no recipe.
	ErrNoInstaller = errors.New("no package manager available")
)

// ConfigurationError is a fatal startup problem. The run ends before any
// file is scanned.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err == nil {
		return "configuration error: " + e.Reason
	}
	return "configuration error: " + e.Reason + ": " + e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configErr(err error, reason string) *ConfigurationError {
	return &ConfigurationError{Reason: reason, Err: err}
}
