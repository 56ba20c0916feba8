// Package reconcile turns a compression service envelope into what the user
// sees: stats, derived savings, a single password-protection notice, and the
// download reference to retrieve.
package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fpang/batch-compress/internal/compress"
)

// ErrJobFailed is returned for a success=false envelope.
var ErrJobFailed = errors.New("compression job failed")

// Outcome is the reconciled view of a successful job.
type Outcome struct {
	Stats   compress.Stats
	Savings int64

	// ProtectedFiles lists every file the service reported as password protected.
	ProtectedFiles []string
	// ProtectionNotice combines all protected files into one message; empty
	// when none were protected.
	ProtectionNotice string

	// DownloadURL is empty when the service produced nothing to retrieve.
	DownloadURL string
}

// HasDownload reports whether there is an artifact to retrieve.
func (o Outcome) HasDownload() bool {
	return o.DownloadURL != ""
}

// Reconcile interprets result. A nil or unsuccessful result is an error and
// yields no stats.
func Reconcile(result *compress.JobResult) (Outcome, error) {
	if result == nil {
		return Outcome{}, fmt.Errorf("%w: no result", ErrJobFailed)
	}
	if !result.Success {
		if result.Error != "" {
			return Outcome{}, fmt.Errorf("%w: %s", ErrJobFailed, result.Error)
		}
		return Outcome{}, ErrJobFailed
	}

	var protected []string
	for _, f := range result.ProcessedFiles {
		if f.PasswordProtected {
			protected = append(protected, describeProtected(f))
		}
	}

	out := Outcome{
		Stats:          result.Stats,
		Savings:        result.Stats.OriginalSize - result.Stats.CompressedSize,
		ProtectedFiles: protected,
		DownloadURL:    strings.TrimSpace(result.DownloadURL),
	}
	if len(protected) > 0 {
		out.ProtectionNotice = protectionNotice(protected)
	}
	return out, nil
}

func describeProtected(f compress.ProcessedFile) string {
	var extra []string
	if f.ProtectionMethod != "" {
		extra = append(extra, f.ProtectionMethod)
	}
	if f.PasswordHint != "" {
		extra = append(extra, "hint: "+f.PasswordHint)
	}
	if len(extra) == 0 {
		return f.OriginalFilename
	}
	return fmt.Sprintf("%s (%s)", f.OriginalFilename, strings.Join(extra, ", "))
}

func protectionNotice(files []string) string {
	if len(files) == 1 {
		return "Password protection applied to " + files[0]
	}
	return fmt.Sprintf("Password protection applied to %d files: %s", len(files), strings.Join(files, "; "))
}
