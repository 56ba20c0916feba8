// Package admission validates offered files against the batch policy before they
// enter the batch registry. Filtering is a pure function of the candidates and
// the policy; callers decide how to apply the result.
package admission

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fpang/batch-compress/internal/filehandler"
)

const (
	// DefaultMaxCount is the largest number of files one batch may hold.
	DefaultMaxCount = 50

	// DefaultMaxBytesPerFile is the per-file size ceiling (1 GiB).
	DefaultMaxBytesPerFile int64 = 1 << 30
)

// Sentinel rejection reasons, usable with errors.Is.
var (
	ErrTooManyFiles    = errors.New("too many files")
	ErrFileTooLarge    = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// DefaultAcceptedTypes is the media-type allowlist.
var DefaultAcceptedTypes = map[string]bool{
	// Images
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	// Documents
	"application/pdf": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	// Videos
	"video/mp4":        true,
	"video/avi":        true,
	"video/x-msvideo":  true,
	"video/x-matroska": true,
	// Archives
	"application/zip":              true,
	"application/x-zip-compressed": true,
	"application/x-rar-compressed": true,
	"application/vnd.rar":          true,
}

// DefaultAcceptedExtensions is consulted when the declared media type is absent or generic.
var DefaultAcceptedExtensions = map[string]bool{
	"pdf": true, "jpg": true, "jpeg": true, "png": true, "webp": true,
	"mp4": true, "avi": true, "mkv": true, "zip": true, "rar": true,
	"docx": true, "pptx": true,
}

// genericTypes are declared media types that carry no information.
var genericTypes = map[string]bool{
	"":                         true,
	"application/octet-stream": true,
	"binary/octet-stream":      true,
}

// Policy holds the admission constraints.
type Policy struct {
	MaxCount           int
	MaxBytesPerFile    int64
	AcceptedTypes      map[string]bool
	AcceptedExtensions map[string]bool
}

// DefaultPolicy returns the standard batch policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxCount:           DefaultMaxCount,
		MaxBytesPerFile:    DefaultMaxBytesPerFile,
		AcceptedTypes:      DefaultAcceptedTypes,
		AcceptedExtensions: DefaultAcceptedExtensions,
	}
}

// Rejection records why a candidate was not admitted.
type Rejection struct {
	Name   string
	Reason error
}

// Result partitions the offered candidates.
type Result struct {
	Accepted []filehandler.CandidateFile
	Rejected []Rejection

	// CountLimit is the violated MaxCount when the whole offer was refused, 0 otherwise.
	CountLimit int
}

// AdmissionError reports rejected candidates. It unwraps to every rejection reason.
type AdmissionError struct {
	Rejected []Rejection

	// CountLimit is non-zero for a count violation, which is reported as one notice.
	CountLimit int
}

func (e *AdmissionError) Error() string {
	if e.CountLimit > 0 {
		return fmt.Sprintf("%v: %d files offered, at most %d allowed per batch",
			ErrTooManyFiles, len(e.Rejected), e.CountLimit)
	}
	return formatRejections(e.Rejected)
}

// Unwrap exposes the rejection reasons to errors.Is.
func (e *AdmissionError) Unwrap() []error {
	errs := make([]error, 0, len(e.Rejected))
	for _, r := range e.Rejected {
		errs = append(errs, r.Reason)
	}
	return errs
}

// Err returns an *AdmissionError when nothing was accepted and something was
// rejected, nil otherwise.
func (r Result) Err() error {
	if len(r.Accepted) > 0 || len(r.Rejected) == 0 {
		return nil
	}
	return &AdmissionError{Rejected: r.Rejected, CountLimit: r.CountLimit}
}

// Warning returns the combined rejection listing for a partial admission, or ""
// when every candidate was accepted.
func (r Result) Warning() string {
	if len(r.Rejected) == 0 {
		return ""
	}
	return (&AdmissionError{Rejected: r.Rejected, CountLimit: r.CountLimit}).Error()
}

// Filter validates the offered candidates in order against the policy.
//
// An offer larger than MaxCount is refused as a whole: no file is admitted and
// every candidate is rejected with the same count violation. Otherwise each
// candidate is checked for size and then type; the type check uses the declared
// media type and falls back to the extension when that type is absent or generic.
func Filter(candidates []filehandler.CandidateFile, policy Policy) Result {
	var result Result

	if policy.MaxCount > 0 && len(candidates) > policy.MaxCount {
		reason := fmt.Errorf("%w (max %d)", ErrTooManyFiles, policy.MaxCount)
		for _, c := range candidates {
			result.Rejected = append(result.Rejected, Rejection{Name: c.Name, Reason: reason})
		}
		result.CountLimit = policy.MaxCount
		return result
	}

	for _, c := range candidates {
		if err := check(c, policy); err != nil {
			result.Rejected = append(result.Rejected, Rejection{Name: c.Name, Reason: err})
			continue
		}
		result.Accepted = append(result.Accepted, c)
	}
	return result
}

func check(c filehandler.CandidateFile, policy Policy) error {
	if policy.MaxBytesPerFile > 0 && c.Size > policy.MaxBytesPerFile {
		return fmt.Errorf("%w: %s exceeds the %s limit",
			ErrFileTooLarge, humanize.IBytes(uint64(c.Size)), humanize.IBytes(uint64(policy.MaxBytesPerFile)))
	}

	mimeType := strings.ToLower(strings.TrimSpace(c.MIMEType))
	if policy.AcceptedTypes[mimeType] {
		return nil
	}
	if genericTypes[mimeType] && policy.AcceptedExtensions[filehandler.Extension(c.Name)] {
		return nil
	}

	declared := mimeType
	if declared == "" {
		declared = "unknown type"
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedType, declared)
}

func formatRejections(rejected []Rejection) string {
	lines := make([]string, 0, len(rejected))
	for _, r := range rejected {
		lines = append(lines, fmt.Sprintf("%s: %v", r.Name, r.Reason))
	}
	return "some files were not added:\n" + strings.Join(lines, "\n")
}
