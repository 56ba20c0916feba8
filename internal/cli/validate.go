package cli

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// ValidateAndResolveDirectory checks that the path exists and is a directory,
// then returns the absolute path. Exits fatally on failure.
func ValidateAndResolveDirectory(dirPath string) string {
	info, err := os.Stat(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Fatal().Str("path", dirPath).Msg("Directory not found")
		}
		log.Fatal().Err(err).Str("path", dirPath).Msg("Failed to access directory")
	}
	if !info.IsDir() {
		log.Fatal().Str("path", dirPath).Msg("Path is not a directory")
	}

	absPath, err := filepath.Abs(dirPath)
	if err == nil {
		dirPath = absPath
	}

	return dirPath
}

// EnsureOutputDirectory creates dirPath if needed and returns its absolute
// path. Exits fatally on failure.
func EnsureOutputDirectory(dirPath string) string {
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		log.Fatal().Err(err).Str("path", dirPath).Msg("Failed to create output directory")
	}
	if absPath, err := filepath.Abs(dirPath); err == nil {
		return absPath
	}
	return dirPath
}
