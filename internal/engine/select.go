package engine

import (
	"context"
	"fmt"

	"github.com/gwlsn/shrinkbatch/internal/config"
	"github.com/gwlsn/shrinkbatch/internal/ffmpeg"
	"github.com/gwlsn/shrinkbatch/internal/logger"
	"github.com/gwlsn/shrinkbatch/internal/platform"
)

// Detector re-probes the host after an install attempt.
type Detector interface {
	Detect(ctx context.Context, requirements map[string][]string) *platform.Info
}

// Selector picks the engine for a run.
type Selector struct {
	cfg          *config.Config
	detector     Detector
	bootstrapper Bootstrapper

	// verifyHardware confirms a hardware encoder actually works once its
	// executables are present.
	verifyHardware func(ctx context.Context, ffmpegPath string, accel ffmpeg.HWAccel) bool
}

// NewSelector creates a selector. A nil bootstrapper disables installation.
func NewSelector(cfg *config.Config, detector Detector, bootstrapper Bootstrapper) *Selector {
	if bootstrapper == nil {
		bootstrapper = NoopBootstrapper{}
	}
	return &Selector{
		cfg:            cfg,
		detector:       detector,
		bootstrapper:   bootstrapper,
		verifyHardware: ffmpeg.EncoderWorks,
	}
}

// Select resolves requested ("auto" or an engine name) against info.
// An explicit name is never substituted and never triggers an install. In
// auto mode the bootstrapper runs at most once, and only if nothing usable
// is installed.
func (s *Selector) Select(ctx context.Context, requested string, info *platform.Info) (Engine, error) {
	if info == nil || info.Platform == platform.Unknown || len(priorities[info.Platform]) == 0 {
		p := platform.Unknown
		if info != nil {
			p = info.Platform
		}
		return nil, configErr(ErrUnsupportedPlatform, string(p))
	}

	if requested == "" {
		requested = NameAuto
	}
	if requested != NameAuto {
		return s.selectExplicit(ctx, requested, info)
	}

	if eng := s.firstUsable(ctx, info); eng != nil {
		return eng, nil
	}

	logger.Warn("No encoder installed, attempting install", "platform", info.Platform)
	if err := s.bootstrapper.Install(ctx, info); err != nil {
		logger.Warn("Install attempt failed", "error", err)
	}

	info = s.detector.Detect(ctx, Requirements(s.cfg))
	if eng := s.firstUsable(ctx, info); eng != nil {
		return eng, nil
	}

	return nil, configErr(ErrNoEngine, fmt.Sprintf("none of %v available on %s", Priority(info.Platform), info.Platform))
}

func (s *Selector) selectExplicit(ctx context.Context, name string, info *platform.Info) (Engine, error) {
	if !IsKnown(name) {
		return nil, configErr(ErrUnknownEngine, name)
	}
	if !IsViable(name, info.Platform) {
		return nil, configErr(ErrNotViable, fmt.Sprintf("%s on %s", name, info.Platform))
	}
	if !info.IsInstalled(name) {
		return nil, configErr(ErrNotInstalled, name)
	}
	if !s.hardwareWorks(ctx, name, info) {
		return nil, configErr(ErrNotInstalled, name+": test encode failed")
	}
	eng := build(name, s.cfg, info)
	logger.Info("Engine selected", "engine", name, "binary", eng.Capability().Binary)
	return eng, nil
}

func (s *Selector) firstUsable(ctx context.Context, info *platform.Info) Engine {
	for _, name := range Priority(info.Platform) {
		if !info.IsInstalled(name) {
			continue
		}
		if !s.hardwareWorks(ctx, name, info) {
			logger.Info("Skipping engine, test encode failed", "engine", name)
			continue
		}
		eng := build(name, s.cfg, info)
		logger.Info("Engine selected", "engine", name, "binary", eng.Capability().Binary)
		return eng
	}
	return nil
}

func (s *Selector) hardwareWorks(ctx context.Context, name string, info *platform.Info) bool {
	def := definitions[name]
	if !def.hardware || s.verifyHardware == nil {
		return true
	}
	return s.verifyHardware(ctx, resolved(info, s.cfg.FFmpegPath), def.accel)
}
