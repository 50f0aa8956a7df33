// Package scan discovers the media files a run should process.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gwlsn/shrinkbatch/internal/logger"
)

const (
	// OutputSuffix marks a file as produced by this tool.
	OutputSuffix = "_compressed"
	// OutputExt is the container every output uses.
	OutputExt = ".mp4"
)

// MediaAsset is a source file discovered by the scanner.
type MediaAsset struct {
	Path    string    `json:"path"`
	RelPath string    `json:"rel_path"` // Relative to the input root; the base name for single-file input
	Ext     string    `json:"ext"`      // Lowercase, with dot
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Stem returns the file name without its extension.
func (a MediaAsset) Stem() string {
	base := filepath.Base(a.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Result is the ordered outcome of one scan.
type Result struct {
	Root   string       `json:"root"`
	Single bool         `json:"single"` // Input root was a file
	Assets []MediaAsset `json:"assets"`
	// Excluded counts media files passed over as already compressed.
	Excluded int `json:"excluded"`
}

// Scanner walks an input root for media files.
type Scanner struct {
	extensions map[string]bool
}

// NewScanner creates a scanner matching the given extensions (with dot, any case).
func NewScanner(extensions []string) *Scanner {
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = true
	}
	return &Scanner{extensions: exts}
}

// IsMediaFile reports whether name has one of the scanner's extensions.
func (s *Scanner) IsMediaFile(name string) bool {
	return s.extensions[strings.ToLower(filepath.Ext(name))]
}

// IsCompressedName reports whether a file name carries the output suffix.
func IsCompressedName(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(strings.TrimSuffix(base, filepath.Ext(base)), OutputSuffix)
}

// OutputName returns the output file name for a source stem.
func OutputName(stem string) string {
	return stem + OutputSuffix + OutputExt
}

// Scan returns the assets under inputRoot in deterministic walk order.
// Anything inside outputRoot, or already carrying the output suffix, or with
// a compressed sibling next to it, is excluded.
func (s *Scanner) Scan(ctx context.Context, inputRoot, outputRoot string) (*Result, error) {
	root, err := filepath.Abs(inputRoot)
	if err != nil {
		root = filepath.Clean(inputRoot)
	}
	outAbs, err := filepath.Abs(outputRoot)
	if err != nil {
		outAbs = filepath.Clean(outputRoot)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}

	result := &Result{Root: root}

	if !info.IsDir() {
		result.Single = true
		if IsCompressedName(root) {
			result.Excluded++
			return result, nil
		}
		result.Assets = append(result.Assets, newAsset(root, filepath.Base(root), info))
		return result, nil
	}

	outName := filepath.Base(outAbs)

	// WalkDir visits entries in lexical order, which gives a stable job order
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			logger.Warn("Skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if path == outAbs || name == outName {
				logger.Debug("Pruning output directory", "path", path)
				return filepath.SkipDir
			}
			if strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		// Hidden files, including macOS ._ resource forks
		if strings.HasPrefix(name, ".") || !d.Type().IsRegular() || !s.IsMediaFile(name) {
			return nil
		}

		if IsCompressedName(name) || hasCompressedSibling(path) {
			result.Excluded++
			logger.Debug("Already compressed", "path", path)
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			logger.Warn("Skipping file", "path", path, "error", err)
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = name
		}
		result.Assets = append(result.Assets, newAsset(path, rel, fi))
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	return result, nil
}

func newAsset(path, rel string, fi fs.FileInfo) MediaAsset {
	return MediaAsset{
		Path:    path,
		RelPath: rel,
		Ext:     strings.ToLower(filepath.Ext(path)),
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
	}
}

// hasCompressedSibling reports whether an earlier in-place run already left
// stem_compressed.mp4 next to path.
func hasCompressedSibling(path string) bool {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	_, err := os.Stat(filepath.Join(filepath.Dir(path), OutputName(stem)))
	return err == nil
}
