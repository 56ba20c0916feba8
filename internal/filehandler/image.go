package filehandler

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// ImageDetails is the EXIF information shown next to an image in the preview.
type ImageDetails struct {
	DateTaken time.Time
	HasDate   bool

	CameraMake  string
	CameraModel string
}

// Camera returns "make model" trimmed, or "" when neither is known.
func (d *ImageDetails) Camera() string {
	return strings.TrimSpace(d.CameraMake + " " + d.CameraModel)
}

// ExtractImageDetails reads EXIF metadata using the imagemeta library. Only the
// metadata block is read, not the whole image.
// Date priority: DateTimeOriginal > CreateDate > ModifyDate.
func ExtractImageDetails(filePath string) (*ImageDetails, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	exifData, err := imagemeta.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode EXIF metadata: %w", err)
	}

	details := &ImageDetails{}
	if !exifData.DateTimeOriginal().IsZero() {
		details.DateTaken = exifData.DateTimeOriginal()
		details.HasDate = true
	} else if !exifData.CreateDate().IsZero() {
		details.DateTaken = exifData.CreateDate()
		details.HasDate = true
	} else if !exifData.ModifyDate().IsZero() {
		details.DateTaken = exifData.ModifyDate()
		details.HasDate = true
	}

	details.CameraMake = strings.TrimSpace(exifData.Make)
	details.CameraModel = strings.TrimSpace(exifData.Model)

	log.Debug().
		Str("path", filePath).
		Bool("hasDate", details.HasDate).
		Str("camera", details.Camera()).
		Msg("Image details extracted")

	return details, nil
}
