package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/gwlsn/shrinkbatch/internal/logger"
	"github.com/gwlsn/shrinkbatch/internal/platform"
)

// Bootstrapper installs encoder executables. It is only invoked during engine
// selection, before any job exists.
type Bootstrapper interface {
	Install(ctx context.Context, info *platform.Info) error
}

// NoopBootstrapper never installs anything.
type NoopBootstrapper struct{}

func (NoopBootstrapper) Install(context.Context, *platform.Info) error {
	return fmt.Errorf("automatic install disabled: %w", ErrNoInstaller)
}

// ShellBootstrapper installs ffmpeg (and HandBrakeCLI where packaged) with the
// platform package manager.
type ShellBootstrapper struct {
	Stdout io.Writer
	Stderr io.Writer

	// run and lookPath are swapped out in tests.
	run      func(ctx context.Context, stdout, stderr io.Writer, name string, args ...string) error
	lookPath func(string) (string, error)
}

// NewShellBootstrapper returns a bootstrapper streaming installer output to
// the process stdout/stderr.
func NewShellBootstrapper() *ShellBootstrapper {
	return &ShellBootstrapper{
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		run:      runCommand,
		lookPath: exec.LookPath,
	}
}

// InstallCommand returns the command line for info, or ErrNoInstaller.
func (b *ShellBootstrapper) InstallCommand(info *platform.Info) ([]string, error) {
	has := func(name string) bool {
		_, err := b.lookPath(name)
		return err == nil
	}

	switch info.Platform {
	case platform.MacOS:
		if has("brew") {
			return []string{"brew", "install", "handbrake", "ffmpeg"}, nil
		}
	case platform.Android:
		if has("pkg") {
			return []string{"pkg", "install", "-y", "ffmpeg"}, nil
		}
	case platform.Linux:
		apt := []string{"sudo", "apt-get", "install", "-y", "handbrake-cli", "ffmpeg"}
		dnf := []string{"sudo", "dnf", "install", "-y", "HandBrake-cli", "ffmpeg"}
		switch strings.ToLower(info.Family) {
		case "debian":
			return apt, nil
		case "rhel", "fedora":
			return dnf, nil
		}
		if has("apt-get") {
			return apt, nil
		}
		if has("dnf") {
			return dnf, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", info.Platform, ErrNoInstaller)
}

// Install runs the platform install command once.
func (b *ShellBootstrapper) Install(ctx context.Context, info *platform.Info) error {
	cmdline, err := b.InstallCommand(info)
	if err != nil {
		return err
	}

	logger.Info("Installing encoders", "command", strings.Join(cmdline, " "))
	if err := b.run(ctx, b.Stdout, b.Stderr, cmdline[0], cmdline[1:]...); err != nil {
		return fmt.Errorf("%s: %w", strings.Join(cmdline, " "), err)
	}
	return nil
}

func runCommand(ctx context.Context, stdout, stderr io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin // sudo may prompt
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}
