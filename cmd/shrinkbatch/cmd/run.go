package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gwlsn/shrinkbatch/internal/config"
	"github.com/gwlsn/shrinkbatch/internal/engine"
	"github.com/gwlsn/shrinkbatch/internal/ffmpeg"
	"github.com/gwlsn/shrinkbatch/internal/jobs"
	"github.com/gwlsn/shrinkbatch/internal/logger"
	"github.com/gwlsn/shrinkbatch/internal/platform"
	"github.com/gwlsn/shrinkbatch/internal/report"
	"github.com/gwlsn/shrinkbatch/internal/scan"
	"github.com/gwlsn/shrinkbatch/internal/store"
)

// ErrInvalidQuality is returned for a quality argument that is not an integer
// in range.
var ErrInvalidQuality = errors.New("invalid quality")

func addRunFlags(c *cobra.Command) {
	c.Flags().String("engine", config.DefaultEngine, "encoder: auto, videotoolbox, nvenc, handbrake, ffmpeg")
	c.Flags().Bool("remux", false, "try a stream copy before encoding mp4/m4v/mov sources")
	c.Flags().Int("workers", jobs.DefaultWorkers, fmt.Sprintf("parallel jobs (%d-%d)", jobs.MinWorkers, jobs.MaxWorkers))
	c.Flags().Bool("stats", false, "write a JSON stats record per output under <output>/_stats")
	c.Flags().Bool("no-history", false, "do not record this run in the history database")
	c.Flags().Bool("no-install", false, "never try to install a missing encoder")
}

// applyRunFlags copies explicitly set flags over the loaded config.
func applyRunFlags(flags *pflag.FlagSet, c *config.Config) {
	if flags.Changed("engine") {
		c.Engine, _ = flags.GetString("engine")
	}
	if flags.Changed("remux") {
		c.Remux, _ = flags.GetBool("remux")
	}
	if flags.Changed("workers") {
		c.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("stats") {
		c.WriteStats, _ = flags.GetBool("stats")
	}
	if noHistory, _ := flags.GetBool("no-history"); noHistory {
		c.History = false
	}
	if noInstall, _ := flags.GetBool("no-install"); noInstall {
		c.AutoInstall = false
	}
}

// parseQuality parses the positional quality argument.
func parseQuality(s string) (int, error) {
	q, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidQuality, s)
	}
	if q < config.MinQuality || q > config.MaxQuality {
		return 0, fmt.Errorf("%w: %d outside %d-%d", ErrInvalidQuality, q, config.MinQuality, config.MaxQuality)
	}
	return q, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	inputPath, outputPath := args[0], args[1]

	if len(args) == 3 {
		q, err := parseQuality(args[2])
		if err != nil {
			return err
		}
		cfg.Quality = q
	}
	applyRunFlags(cmd.Flags(), cfg)
	if !jobs.IsValidWorkerCount(cfg.Workers) {
		logger.Warn("Worker count out of range, clamping", "requested", cfg.Workers)
		cfg.Workers = jobs.ClampWorkerCount(cfg.Workers)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("input path: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	detector := &platform.Detector{}
	info := detector.Detect(ctx, engine.Requirements(cfg))
	logger.Info("Platform detected",
		"platform", info.Platform,
		"family", info.Family,
		"cpu", info.CPUModel,
		"logical_cpus", info.LogicalCPUs,
		"installed", info.InstalledEngines(),
	)

	var bootstrapper engine.Bootstrapper = engine.NoopBootstrapper{}
	if cfg.AutoInstall {
		bootstrapper = engine.NewShellBootstrapper()
	}

	eng, err := engine.NewSelector(cfg, detector, bootstrapper).Select(ctx, cfg.Engine, info)
	if err != nil {
		return err
	}
	capability := eng.Capability()

	if info.LogicalCPUs > 0 && cfg.Workers > info.LogicalCPUs {
		logger.Warn("More workers than CPUs", "workers", cfg.Workers, "logical_cpus", info.LogicalCPUs)
	}
	if cfg.Remux && !capability.StreamCopy {
		logger.Warn("Engine cannot stream copy, remux disabled", "engine", capability.Name)
	}

	scanned, err := scan.NewScanner(cfg.MediaExtensions).Scan(ctx, inputPath, outputPath)
	if err != nil {
		return err
	}
	jobList := jobs.BuildJobs(scanned, outputPath, capability.Name, cfg.Quality)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Found %d video(s) → using %s\n", len(jobList), capability.Name)
	if n := scanned.Excluded; n > 0 {
		logger.Info("Excluded already compressed files", "count", n)
	}

	opts := report.Options{}
	if cfg.WriteStats {
		opts.Stats = report.NewStatsWriter(outputPath, ffmpeg.NewProber(cfg.FFprobePath))
	}
	if cfg.History {
		history, run, err := openHistory(inputPath, outputPath, capability.Name)
		if err != nil {
			logger.Warn("Run history disabled", "error", err)
		} else {
			defer history.Close()
			opts.History = history
			opts.Run = run
		}
	}

	dispatcher := jobs.NewDispatcher(eng, jobs.DispatchOptions{
		Remux:           cfg.Remux,
		RemuxContainers: cfg.RemuxContainers,
	})
	pool := jobs.NewWorkerPool(cfg.Workers, dispatcher)

	logger.Info("Run started",
		"engine", capability.Name,
		"quality", cfg.Quality,
		"workers", pool.WorkerCount(),
		"remux", cfg.Remux,
		"jobs", len(jobList),
	)

	// Stats and history for jobs that finish after an interrupt are still written
	summary := report.NewReporter(out, opts).Consume(context.WithoutCancel(ctx), pool.Run(ctx, jobList))

	if ctx.Err() != nil {
		logger.Warn("Run interrupted", "skipped", summary.Skipped)
	}
	if summary.HasFailures() {
		logger.Warn("Some jobs failed", "failed", summary.Failed)
	}
	return nil
}

func openHistory(inputRoot, outputRoot, engineName string) (*store.SQLiteStore, *store.Run, error) {
	db, err := store.NewSQLiteStore(cfg.ResolveHistoryPath(outputRoot))
	if err != nil {
		return nil, nil, err
	}
	run := &store.Run{
		InputRoot:  inputRoot,
		OutputRoot: outputRoot,
		Engine:     engineName,
		Quality:    cfg.Quality,
		Workers:    cfg.Workers,
		Remux:      cfg.Remux,
	}
	if err := db.BeginRun(run); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, run, nil
}
