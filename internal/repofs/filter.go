// Package repofs selects the repository files worth feeding into the
// analysis pipeline: source code, docs and structured config, bounded in
// both size and count.
package repofs

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// MaxFileSize is the per-file size limit. Larger files are skipped
	// entirely, never truncated at this stage.
	MaxFileSize = 5 * 1024 * 1024

	// MaxFiles caps how many files a single analysis run processes.
	MaxFiles = 200
)

// relevantExtensions is the allow-list of file extensions considered useful
// signal: source code, markup, docs, structured config and notebooks.
var relevantExtensions = map[string]bool{
	".py": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".java": true, ".go": true, ".rb": true, ".rs": true,
	".c": true, ".h": true, ".cpp": true, ".cs": true, ".php": true,
	".html": true, ".css": true,
	".md": true, ".rst": true, ".txt": true,
	".json": true, ".yml": true, ".yaml": true, ".toml": true,
	".ipynb": true,
}

// ignoredDirs are directory names whose whole subtree is skipped: VCS
// metadata, dependency caches and build output.
var ignoredDirs = map[string]bool{
	".git": true, ".hg": true, ".svn": true,
	"node_modules": true, "__pycache__": true,
	"venv": true, ".venv": true, "vendor": true,
	"dist": true, "build": true, "out": true, "target": true,
	".next": true, ".sass-cache": true,
	".idea": true, ".vscode": true,
}

// Filter walks repository trees and selects relevant files.
type Filter struct {
	maxFileSize int64
	maxFiles    int
	logger      *slog.Logger
}

// NewFilter creates a Filter with the default size and count bounds.
func NewFilter(logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{
		maxFileSize: MaxFileSize,
		maxFiles:    MaxFiles,
		logger:      logger,
	}
}

// RelevantFiles walks root and returns the files worth analyzing, relative
// to root. Ignored directories are pruned, files outside the extension
// allow-list or above the size limit are dropped, and per-file stat errors
// exclude the file rather than failing the walk. If more than the cap
// survive, README/main/index files are moved to the front and the rest is
// truncated, so small high-signal repositories are never degraded.
func (f *Filter) RelevantFiles(root string) ([]SourceFile, error) {
	var files []SourceFile
	scanned := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entry: skip it, keep walking.
			f.logger.Debug("Skipping unreadable entry", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && ignoredDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		scanned++
		if scanned%100 == 0 {
			f.logger.Info("Scanning repository", "files_seen", scanned)
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		if !relevantExtensions[ext] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() > f.maxFileSize {
			f.logger.Info("Skipping large file", "path", path, "size", info.Size())
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		files = append(files, SourceFile{Path: rel, Ext: ext, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	f.logger.Info("Filtered relevant files", "relevant", len(files), "scanned", scanned)

	if len(files) > f.maxFiles {
		f.logger.Warn("Repository exceeds file cap, truncating",
			"files", len(files), "cap", f.maxFiles)
		files = prioritize(files)[:f.maxFiles]
	}
	return files, nil
}

// prioritize moves README/main/index files to the front, preserving the
// original order within each group.
func prioritize(files []SourceFile) []SourceFile {
	ordered := make([]SourceFile, len(files))
	copy(ordered, files)
	sort.SliceStable(ordered, func(i, j int) bool {
		return isPriority(ordered[i]) && !isPriority(ordered[j])
	})
	return ordered
}

func isPriority(sf SourceFile) bool {
	base := strings.ToLower(filepath.Base(sf.Path))
	if base == "readme.md" {
		return true
	}
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.Contains(name, "main") || strings.Contains(name, "index")
}
