// Package cmd implements the CLI commands for shrinkbatch.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	shrinkbatch "github.com/gwlsn/shrinkbatch"
	"github.com/gwlsn/shrinkbatch/internal/config"
	"github.com/gwlsn/shrinkbatch/internal/logger"
)

var (
	// cfgFile holds the config file path from the --config flag.
	cfgFile string
	// cfg is loaded once per invocation by PersistentPreRunE.
	cfg *config.Config
)

// rootCmd compresses a file or directory tree when given paths.
var rootCmd = &cobra.Command{
	Use:     "shrinkbatch <input_path> <output_path> [quality]",
	Short:   "Batch-compress videos to HEVC",
	Version: shrinkbatch.Version,
	Long: `shrinkbatch walks a file or directory of videos and writes an HEVC copy of
each one to the output path as <name>_compressed.mp4, mirroring the input tree.

The encoder is picked per platform (VideoToolbox on macOS, NVENC on NVIDIA
machines, then HandBrakeCLI, then software ffmpeg) unless --engine names one.
Files already compressed are skipped, so an interrupted run can be resumed by
running the same command again.

quality is a CRF-style value from 0 (best) to 51 (smallest); default 30.`,
	Args:         cobra.RangeArgs(2, 3),
	SilenceUsage: true,
	RunE:         runBatch,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return initConfig(cmd)
	}

	// Flags override the config file only when explicitly set, see Changed()
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $"+config.EnvConfigPath+" or the user config dir)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	addRunFlags(rootCmd)
}

// initConfig loads the config file and configures logging.
//
// Priority order (highest to lowest):
//  1. CLI flags, only if explicitly provided
//  2. Config file values
//  3. Built-in defaults
func initConfig(cmd *cobra.Command) error {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath()
	}

	loaded, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg = loaded

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	// "warning" is accepted as an alias for "warn"
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}

	logger.Init(cfg.LogLevel, cfg.LogFormat)
	logger.Debug("Config loaded", "path", path)
	return nil
}
