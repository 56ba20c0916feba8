package filehandler

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// DefaultThumbnailMaxDimension is the maximum dimension (width or height) for thumbnails.
const DefaultThumbnailMaxDimension = 256

// MaxThumbnailSourceBytes is the largest source image a thumbnail is generated for.
const MaxThumbnailSourceBytes int64 = 10 * 1024 * 1024

// Thumbnail is a transient in-memory view of a downscaled image. It is acquired
// for one render and must be released with Close.
type Thumbnail struct {
	MIMEType string
	Width    int
	Height   int

	mu   sync.Mutex
	data []byte
}

// Bytes returns the encoded thumbnail, or nil once the thumbnail is closed.
func (t *Thumbnail) Bytes() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data
}

// Released reports whether Close has been called.
func (t *Thumbnail) Released() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data == nil
}

// Close releases the thumbnail buffer. Safe to call more than once.
func (t *Thumbnail) Close() error {
	t.mu.Lock()
	t.data = nil
	t.mu.Unlock()
	return nil
}

// CanThumbnail reports whether a thumbnail may be generated for the file:
// images under MaxThumbnailSourceBytes only.
func CanThumbnail(f CandidateFile) bool {
	return f.Category() == CategoryImage && f.Size < MaxThumbnailSourceBytes
}

// GenerateThumbnail decodes an image file and returns a JPEG thumbnail no larger
// than maxDimension on either side. Scaling uses golang.org/x/image/draw.
func GenerateThumbnail(f CandidateFile, maxDimension int) (*Thumbnail, error) {
	if !CanThumbnail(f) {
		return nil, fmt.Errorf("thumbnail not available for %s (%s, %d bytes)", f.Name, f.Category(), f.Size)
	}
	if maxDimension <= 0 {
		maxDimension = DefaultThumbnailMaxDimension
	}

	log.Debug().
		Str("path", f.Path).
		Int("maxDimension", maxDimension).
		Msg("Generating thumbnail")

	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var img image.Image
	switch f.Extension() {
	case "jpg", "jpeg":
		img, err = jpeg.Decode(file)
	case "png":
		img, err = png.Decode(file)
	case "gif":
		img, err = gif.Decode(file)
	case "webp":
		img, err = webp.Decode(file)
	default:
		return nil, fmt.Errorf("unsupported format for thumbnail: %s", f.Extension())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	newWidth, newHeight := calculateThumbnailDimensions(bounds.Dx(), bounds.Dy(), maxDimension)

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	log.Debug().
		Str("path", f.Path).
		Int("origWidth", bounds.Dx()).
		Int("origHeight", bounds.Dy()).
		Int("newWidth", newWidth).
		Int("newHeight", newHeight).
		Int("outputSize", buf.Len()).
		Msg("Thumbnail generated")

	return &Thumbnail{
		MIMEType: "image/jpeg",
		Width:    newWidth,
		Height:   newHeight,
		data:     buf.Bytes(),
	}, nil
}

// calculateThumbnailDimensions calculates new dimensions maintaining aspect ratio.
func calculateThumbnailDimensions(width, height, maxDimension int) (int, int) {
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}

	if width > height {
		newHeight := int(float64(height) * float64(maxDimension) / float64(width))
		return maxDimension, max(newHeight, 1)
	}

	newWidth := int(float64(width) * float64(maxDimension) / float64(height))
	return max(newWidth, 1), maxDimension
}
