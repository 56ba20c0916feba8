// Package filehandler provides local file handling for batch compression jobs.
//
// It turns paths on disk into CandidateFile values, classifies them into coarse
// categories by extension, and produces the transient preview artifacts
// (thumbnails, EXIF details) used by the preview projector:
//   - Categories drive icon selection, savings heuristics, and preview eligibility
//   - MIME types are declared from the extension table; the admission filter decides
//     whether a file may enter a batch
package filehandler

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Category is the coarse file classification derived from a file name's extension.
type Category string

const (
	CategoryImage   Category = "image"
	CategoryPDF     Category = "pdf"
	CategoryDoc     Category = "doc"
	CategoryVideo   Category = "video"
	CategoryArchive Category = "archive"
	CategoryFile    Category = "file"
)

// categoryByExtension maps lower-case extensions (without the dot) to categories.
// Anything not listed is CategoryFile.
var categoryByExtension = map[string]Category{
	"jpg":  CategoryImage,
	"jpeg": CategoryImage,
	"png":  CategoryImage,
	"webp": CategoryImage,
	"gif":  CategoryImage,
	"pdf":  CategoryPDF,
	"doc":  CategoryDoc,
	"docx": CategoryDoc,
	"ppt":  CategoryDoc,
	"pptx": CategoryDoc,
	"mp4":  CategoryVideo,
	"avi":  CategoryVideo,
	"mkv":  CategoryVideo,
	"mov":  CategoryVideo,
	"zip":  CategoryArchive,
	"rar":  CategoryArchive,
}

// SupportedMIMETypes maps extensions (without the dot) to the media type declared
// for files loaded from disk.
var SupportedMIMETypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
	"pdf":  "application/pdf",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"mp4":  "video/mp4",
	"avi":  "video/x-msvideo",
	"mkv":  "video/x-matroska",
	"zip":  "application/zip",
	"rar":  "application/vnd.rar",
}

// GenericMIMEType is declared for files whose extension has no known media type.
const GenericMIMEType = "application/octet-stream"

// CandidateFile is a file offered for a batch. It is immutable once admitted;
// the binary content stays on disk and is opened on demand.
type CandidateFile struct {
	Name     string
	Size     int64
	MIMEType string
	Path     string
}

// Open returns a reader over the file content. The caller must close it.
func (f CandidateFile) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}

// Extension returns the lower-case extension of the file name without the dot.
func (f CandidateFile) Extension() string {
	return Extension(f.Name)
}

// Category returns the category derived from the file name.
func (f CandidateFile) Category() Category {
	return CategoryOf(f.Name)
}

// Extension returns the substring after the last '.' of name, lower-cased.
// A name without a dot has no extension.
func Extension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

// CategoryOf classifies a file name by extension (case-insensitive).
func CategoryOf(name string) Category {
	if c, ok := categoryByExtension[Extension(name)]; ok {
		return c
	}
	return CategoryFile
}

// GetMIMEType returns the declared MIME type for an extension (with or without the dot).
func GetMIMEType(ext string) (string, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if mimeType, ok := SupportedMIMETypes[ext]; ok {
		return mimeType, nil
	}
	return "", fmt.Errorf("unsupported file extension: %q", ext)
}

// LoadCandidate stats a file on disk and returns it as a CandidateFile.
// Unknown extensions are declared as GenericMIMEType; rejecting them is the
// admission filter's job, not the loader's.
func LoadCandidate(filePath string) (CandidateFile, error) {
	log.Debug().Str("path", filePath).Msg("Loading candidate file")

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return CandidateFile{}, fmt.Errorf("file not found: %s", filePath)
		}
		return CandidateFile{}, fmt.Errorf("failed to stat file: %w", err)
	}

	if info.IsDir() {
		return CandidateFile{}, fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	name := filepath.Base(filePath)
	mimeType, err := GetMIMEType(Extension(name))
	if err != nil {
		mimeType = GenericMIMEType
	}

	return CandidateFile{
		Name:     name,
		Size:     info.Size(),
		MIMEType: mimeType,
		Path:     filePath,
	}, nil
}

// LoadCandidates loads every path in order, stopping at the first failure.
func LoadCandidates(paths []string) ([]CandidateFile, error) {
	files := make([]CandidateFile, 0, len(paths))
	for _, p := range paths {
		f, err := LoadCandidate(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}
