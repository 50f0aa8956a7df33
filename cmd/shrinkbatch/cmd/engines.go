package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/gwlsn/shrinkbatch/internal/engine"
	"github.com/gwlsn/shrinkbatch/internal/platform"
)

// enginesCmd represents the engines command
var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "Show detected platform and encoders",
	Long: `Detect the platform and list every encoder in the order auto selection
would try them. Nothing is installed and no file is touched.`,
	Args: cobra.NoArgs,
	RunE: runEngines,
}

func init() {
	rootCmd.AddCommand(enginesCmd)

	enginesCmd.Flags().Duration("timeout", 30*time.Second, "detection timeout")
}

func runEngines(cmd *cobra.Command, _ []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	detector := &platform.Detector{}
	info := detector.Detect(ctx, engine.Requirements(cfg))

	printEngines(cmd.OutOrStdout(), info, engine.Describe(info))
	return nil
}

func printEngines(w io.Writer, info *platform.Info, rows []engine.Status) {
	fmt.Fprintf(w, "Platform: %s", info.Platform)
	if info.Family != "" {
		fmt.Fprintf(w, " (%s %s)", info.Family, info.Version)
	}
	fmt.Fprintln(w)
	if info.CPUModel != "" {
		fmt.Fprintf(w, "CPU:      %s, %d logical\n", info.CPUModel, info.LogicalCPUs)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  %-4s %-13s %-10s %-10s %-9s %s\n", "RANK", "ENGINE", "SUPPORTED", "INSTALLED", "HARDWARE", "REMUX")
	for _, row := range rows {
		rank := "-"
		if row.Rank > 0 {
			rank = fmt.Sprintf("%d", row.Rank)
		}
		fmt.Fprintf(w, "  %-4s %-13s %-10s %-10s %-9s %s\n",
			rank, row.Name, yesNo(row.Viable), yesNo(row.Installed), yesNo(row.Hardware), yesNo(row.StreamCopy))
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
