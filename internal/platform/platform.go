// Package platform identifies the host operating system and which encoder
// executables are installed on it.
package platform

import (
	"context"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"

	"github.com/gwlsn/shrinkbatch/internal/logger"
)

// Platform is the coarse host tag engine priorities are keyed on.
type Platform string

const (
	MacOS   Platform = "macos"
	Linux   Platform = "linux"
	Windows Platform = "windows"
	Android Platform = "android"
	Unknown Platform = "unknown"
)

// termuxPrefix is the app data directory of Termux on Android.
const termuxPrefix = "/data/data/com.termux"

// Info describes the host for one run.
type Info struct {
	Platform Platform
	// Family is the distribution family reported by the host, e.g. "debian"
	// or "rhel". Empty off Linux.
	Family      string
	Version     string
	CPUModel    string
	LogicalCPUs int

	// Installed maps an engine name to whether all of its executables resolve.
	Installed map[string]bool
	// Binaries maps a requested executable to its resolved path.
	Binaries map[string]string
}

// IsInstalled reports whether every executable of engine resolved.
func (i *Info) IsInstalled(engine string) bool {
	return i != nil && i.Installed[engine]
}

// InstalledEngines returns the installed engine names in sorted order.
func (i *Info) InstalledEngines() []string {
	var names []string
	for name, ok := range i.Installed {
		if ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Detector gathers host facts. Zero value uses the real system.
type Detector struct {
	// HostInfo overrides gopsutil's host lookup.
	HostInfo func(ctx context.Context) (*host.InfoStat, error)
	// FindBinary overrides executable resolution.
	FindBinary func(name string) (string, error)
	// Getenv and Stat override the Android checks.
	Getenv func(string) string
	Stat   func(string) (os.FileInfo, error)
}

// Detect probes the host. requirements maps an engine name to the
// executables it needs. Detect has no side effects.
func (d *Detector) Detect(ctx context.Context, requirements map[string][]string) *Info {
	info := &Info{
		Installed: make(map[string]bool, len(requirements)),
		Binaries:  make(map[string]string),
	}

	goos := runtime.GOOS
	if hi, err := d.hostInfo(ctx); err == nil && hi != nil {
		goos = hi.OS
		info.Family = hi.PlatformFamily
		info.Version = hi.PlatformVersion
	} else if err != nil {
		logger.Debug("Host info unavailable, using runtime OS", "error", err)
	}
	info.Platform = d.classify(goos)

	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		info.CPUModel = strings.TrimSpace(infos[0].ModelName)
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.LogicalCPUs = n
	} else {
		info.LogicalCPUs = runtime.NumCPU()
	}

	find := d.FindBinary
	if find == nil {
		find = FindBinary
	}

	missing := make(map[string]bool)
	for engine, binaries := range requirements {
		ok := len(binaries) > 0
		for _, bin := range binaries {
			if _, done := info.Binaries[bin]; done {
				continue
			}
			if missing[bin] {
				ok = false
				continue
			}
			path, err := find(bin)
			if err != nil {
				missing[bin] = true
				ok = false
				continue
			}
			info.Binaries[bin] = path
		}
		info.Installed[engine] = ok
	}

	logger.Debug("Platform detected",
		"platform", info.Platform,
		"family", info.Family,
		"cpus", info.LogicalCPUs,
		"installed", strings.Join(info.InstalledEngines(), ","))
	return info
}

func (d *Detector) hostInfo(ctx context.Context) (*host.InfoStat, error) {
	if d.HostInfo != nil {
		return d.HostInfo(ctx)
	}
	return host.InfoWithContext(ctx)
}

func (d *Detector) classify(goos string) Platform {
	getenv := d.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	stat := d.Stat
	if stat == nil {
		stat = os.Stat
	}

	// Termux reports plain linux from the kernel
	if getenv("TERMUX_VERSION") != "" {
		return Android
	}
	if _, err := stat(termuxPrefix); err == nil {
		return Android
	}

	switch strings.ToLower(goos) {
	case "darwin":
		return MacOS
	case "linux":
		return Linux
	case "windows":
		return Windows
	case "android":
		return Android
	}
	return Unknown
}
