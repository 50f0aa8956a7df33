package jobs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gwlsn/shrinkbatch/internal/scan"
)

// OutputPath maps an asset to its output file. Single-file input lands
// directly in outputRoot; tree input mirrors the asset's relative directory.
func OutputPath(asset scan.MediaAsset, outputRoot string, single bool) string {
	name := scan.OutputName(asset.Stem())
	if single {
		return filepath.Join(outputRoot, name)
	}
	return filepath.Join(outputRoot, filepath.Dir(asset.RelPath), name)
}

// EnsureOutputDir creates the parent directory of path. Safe to call from
// several workers at once.
func EnsureOutputDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}

// BuildJobs creates one job per asset in scan order. Two sources sharing a
// stem in the same directory (clip.mkv, clip.mov) would map to the same
// output; later ones get the source extension folded into the name.
func BuildJobs(result *scan.Result, outputRoot, engineName string, quality int) []*Job {
	jobs := make([]*Job, 0, len(result.Assets))
	taken := make(map[string]bool, len(result.Assets))

	for _, asset := range result.Assets {
		out := OutputPath(asset, outputRoot, result.Single)
		if taken[out] {
			dir := filepath.Dir(out)
			base := asset.Stem() + "_" + strings.TrimPrefix(asset.Ext, ".")
			out = filepath.Join(dir, scan.OutputName(base))
			for i := 2; taken[out]; i++ {
				out = filepath.Join(dir, scan.OutputName(fmt.Sprintf("%s%d", base, i)))
			}
		}
		taken[out] = true
		jobs = append(jobs, NewJob(asset, out, engineName, quality))
	}
	return jobs
}
