package filehandler

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// ScanOptions configures directory scanning behavior.
type ScanOptions struct {
	// MaxDepth limits recursion depth. 0 = unlimited, 1 = top-level only.
	MaxDepth int

	// Limit caps the number of files returned. 0 = unlimited.
	Limit int
}

// ScanDirectory walks a directory and returns every regular file as a CandidateFile,
// sorted by path. No type filtering happens here so that unsupported files surface
// as admission rejections instead of disappearing silently.
// Symlinks to files are followed; symlinks to directories are skipped to prevent loops.
func ScanDirectory(dirPath string, opts ScanOptions) ([]CandidateFile, error) {
	log.Info().
		Str("path", dirPath).
		Int("maxDepth", opts.MaxDepth).
		Int("limit", opts.Limit).
		Msg("Scanning directory for candidate files")

	info, err := os.Stat(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory not found: %s", dirPath)
		}
		return nil, fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dirPath)
	}

	absPath, err := filepath.Abs(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	baseDepth := strings.Count(absPath, string(os.PathSeparator))

	var files []CandidateFile
	limitReached := false

	err = filepath.WalkDir(absPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error accessing path, skipping")
			return nil
		}

		if opts.MaxDepth > 0 {
			currentDepth := strings.Count(path, string(os.PathSeparator)) - baseDepth
			if d.IsDir() && currentDepth >= opts.MaxDepth {
				return fs.SkipDir
			}
		}

		if d.IsDir() {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			target, err := os.Stat(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("Failed to resolve symlink, skipping")
				return nil
			}
			if target.IsDir() {
				log.Debug().Str("path", path).Msg("Skipping symlink to directory")
				return nil
			}
		}

		if opts.Limit > 0 && len(files) >= opts.Limit {
			limitReached = true
			return fs.SkipAll
		}

		candidate, err := LoadCandidate(path)
		if err != nil {
			log.Warn().Err(err).Str("file", d.Name()).Msg("Failed to load file, skipping")
			return nil
		}

		files = append(files, candidate)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	logEvent := log.Info().
		Int("totalFiles", len(files)).
		Str("directory", dirPath)
	if limitReached {
		logEvent.Bool("limitReached", true)
	}
	logEvent.Msg("Directory scan complete")

	return files, nil
}
