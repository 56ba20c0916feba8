package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fpang/batch-compress/internal/admission"
	"github.com/fpang/batch-compress/internal/config"
	"github.com/fpang/batch-compress/internal/filehandler"
	"github.com/fpang/batch-compress/internal/logging"
	"github.com/fpang/batch-compress/internal/preview"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var thumbnailDirFlag string

// maxPreviewWorkers bounds concurrent EXIF reads and thumbnail renders.
const maxPreviewWorkers = 4

// runPreview admits the collected files and prints the preview without
// submitting anything.
func runPreview(cmd *cobra.Command, args []string) {
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	candidates := collectCandidates(args)
	result := admission.Filter(candidates, admissionPolicy(cfg))
	if err := result.Err(); err != nil {
		log.Fatal().Err(err).Msg("No files can be compressed")
	}
	if warning := result.Warning(); warning != "" {
		fmt.Printf("⚠️  %s\n", warning)
	}

	presenter := newTerminalPresenter(os.Stdout, "", false)
	items := preview.Project(result.Accepted)
	presenter.ShowPreview(items, preview.EstimateSavings(result.Accepted))

	if thumbnailDirFlag != "" {
		if err := os.MkdirAll(thumbnailDirFlag, 0o755); err != nil {
			log.Fatal().Err(err).Str("path", thumbnailDirFlag).Msg("Failed to create thumbnail directory")
		}
	}

	lines := describeImages(items, thumbnailDirFlag)
	if len(lines) > 0 {
		fmt.Println()
		fmt.Println("📷 Image details:")
		for _, line := range lines {
			fmt.Println(line)
		}
	}
}

// describeImages reads EXIF details for every image and, when thumbDir is set,
// writes a thumbnail for each thumbnailable one. Output order follows items.
func describeImages(items []preview.Item, thumbDir string) []string {
	lines := make([]string, len(items))

	var g errgroup.Group
	g.SetLimit(maxPreviewWorkers)
	for i, it := range items {
		if it.Category != filehandler.CategoryImage {
			continue
		}
		i, it := i, it
		g.Go(func() error {
			lines[i] = describeImage(it, thumbDir)
			return nil
		})
	}
	g.Wait()

	out := lines[:0]
	for _, line := range lines {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func describeImage(it preview.Item, thumbDir string) string {
	var parts []string
	if details := it.Details(); details != nil {
		if details.HasDate {
			parts = append(parts, "📅 "+details.DateTaken.Format("2006-01-02 15:04"))
		}
		if camera := details.Camera(); camera != "" {
			parts = append(parts, "📸 "+camera)
		}
	}

	if thumbDir != "" && it.Thumbnailable {
		if path, err := writeThumbnail(it, thumbDir); err != nil {
			log.Warn().Err(err).Str("file", it.Name).Msg("Thumbnail failed")
		} else {
			parts = append(parts, "🖼  "+path)
		}
	}

	if len(parts) == 0 {
		parts = append(parts, "no metadata")
	}
	return fmt.Sprintf("   %2d. %s: %s", it.Index+1, it.Name, strings.Join(parts, "  "))
}

func writeThumbnail(it preview.Item, dir string) (string, error) {
	thumb, err := it.Thumbnail(filehandler.DefaultThumbnailMaxDimension)
	if err != nil {
		return "", err
	}
	defer thumb.Close()

	name := strings.TrimSuffix(it.Name, filepath.Ext(it.Name))
	path := filepath.Join(dir, fmt.Sprintf("%02d_%s_thumb.jpg", it.Index+1, name))
	if err := os.WriteFile(path, thumb.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write thumbnail: %w", err)
	}
	return path, nil
}
