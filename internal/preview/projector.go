// Package preview derives the display projection of a batch: one lightweight
// item per file plus an advisory savings estimate. Nothing here mutates the batch.
package preview

import (
	"github.com/fpang/batch-compress/internal/filehandler"
	"github.com/rs/zerolog/log"
)

// Item is the non-authoritative display projection of one registered file.
type Item struct {
	Index         int
	Name          string
	Size          int64
	Category      filehandler.Category
	Thumbnailable bool

	file filehandler.CandidateFile
}

// Project derives one Item per file, in batch order.
func Project(files []filehandler.CandidateFile) []Item {
	items := make([]Item, 0, len(files))
	for i, f := range files {
		items = append(items, Item{
			Index:         i,
			Name:          f.Name,
			Size:          f.Size,
			Category:      f.Category(),
			Thumbnailable: filehandler.CanThumbnail(f),
			file:          f,
		})
	}
	return items
}

// Thumbnail acquires a transient thumbnail for inline rendering. The caller
// owns the result and must Close it when the rendering is discarded.
func (it Item) Thumbnail(maxDimension int) (*filehandler.Thumbnail, error) {
	return filehandler.GenerateThumbnail(it.file, maxDimension)
}

// Details returns EXIF details for images. Failures are logged and yield nil;
// details are decoration, never a reason to fail a preview.
func (it Item) Details() *filehandler.ImageDetails {
	if it.Category != filehandler.CategoryImage {
		return nil
	}
	details, err := filehandler.ExtractImageDetails(it.file.Path)
	if err != nil {
		log.Debug().Err(err).Str("file", it.Name).Msg("No image details available")
		return nil
	}
	return details
}

// Icon returns a short glyph for the item's category.
func (it Item) Icon() string {
	switch it.Category {
	case filehandler.CategoryImage:
		return "📷"
	case filehandler.CategoryPDF:
		return "📕"
	case filehandler.CategoryDoc:
		return "📄"
	case filehandler.CategoryVideo:
		return "🎬"
	case filehandler.CategoryArchive:
		return "🗜️"
	default:
		return "📁"
	}
}
