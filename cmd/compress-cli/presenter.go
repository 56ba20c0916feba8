package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fpang/batch-compress/internal/archive"
	"github.com/fpang/batch-compress/internal/cli"
	"github.com/fpang/batch-compress/internal/filehandler"
	"github.com/fpang/batch-compress/internal/preview"
	"github.com/fpang/batch-compress/internal/progress"
	"github.com/fpang/batch-compress/internal/reconcile"
	"github.com/fpang/batch-compress/internal/session"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// progressRedrawInterval limits how often the progress line is redrawn.
const progressRedrawInterval = 250 * time.Millisecond

// terminalPresenter renders the session to a terminal.
type terminalPresenter struct {
	mu         sync.Mutex
	out        io.Writer
	outputDir  string
	saveDialog bool
	redraw     *rate.Limiter
	started    time.Time
	errors     int
	saved      []string
}

func newTerminalPresenter(out io.Writer, outputDir string, saveDialog bool) *terminalPresenter {
	return &terminalPresenter{
		out:        out,
		outputDir:  outputDir,
		saveDialog: saveDialog,
		redraw:     rate.NewLimiter(rate.Every(progressRedrawInterval), 1),
	}
}

var noticeIcons = map[session.Level]string{
	session.LevelInfo:    "ℹ️ ",
	session.LevelSuccess: "✅",
	session.LevelWarning: "⚠️ ",
	session.LevelError:   "❌",
}

func (p *terminalPresenter) Notify(n session.Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n.Level == session.LevelError {
		p.errors++
	}
	lines := strings.Split(n.Message, "\n")
	fmt.Fprintf(p.out, "%s %s\n", noticeIcons[n.Level], lines[0])
	for _, line := range lines[1:] {
		fmt.Fprintf(p.out, "   %s\n", strings.TrimSpace(line))
	}
}

func (p *terminalPresenter) ShowProcessing(open bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if open {
		p.started = time.Now()
		fmt.Fprintln(p.out)
		fmt.Fprintln(p.out, "⏳ Processing files...")
		return
	}
	fmt.Fprintf(p.out, "\n   done in %s\n", cli.FormatDurationShort(time.Since(p.started)))
}

func (p *terminalPresenter) ShowProgress(s progress.State) {
	if s.Percentage > 0 && !p.redraw.Allow() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "\r   %s %3.0f%% %-18s %s", cli.ProgressBar(s.Percentage, 30), s.Percentage, s.Stage,
		cli.FormatDurationShort(time.Since(p.started)))
}

func (p *terminalPresenter) ShowStats(o reconcile.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "============================================")
	fmt.Fprintln(p.out, "📊 Compression Results")
	fmt.Fprintln(p.out, "============================================")
	fmt.Fprintf(p.out, "Files processed:   %d\n", o.Stats.FilesProcessed)
	fmt.Fprintf(p.out, "Original size:     %s\n", cli.FormatBytes(o.Stats.OriginalSize))
	fmt.Fprintf(p.out, "Compressed size:   %s\n", cli.FormatBytes(o.Stats.CompressedSize))
	fmt.Fprintf(p.out, "Compression ratio: %.1f%%\n", o.Stats.CompressionRatio)
	fmt.Fprintf(p.out, "Space saved:       %s\n", cli.FormatBytes(o.Savings))
	fmt.Fprintln(p.out, "--------------------------------------------")
}

func (p *terminalPresenter) ShowPreview(items []preview.Item, estimatedSavings int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out)
	fmt.Fprintf(p.out, "📁 Selected files (%d):\n", len(items))
	var total int64
	for _, it := range items {
		total += it.Size
		fmt.Fprintf(p.out, "   %2d. %s %s (%s)\n", it.Index+1, it.Icon(), it.Name, cli.FormatBytes(it.Size))
	}
	fmt.Fprintf(p.out, "Total size:        %s\n", cli.FormatBytes(total))
	fmt.Fprintf(p.out, "Estimated savings: ~%s\n", cli.FormatBytes(estimatedSavings))
}

func (p *terminalPresenter) ResetPreview() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, "📁 No files selected")
}

// SaveArtifact writes the payload into the output directory, or wherever the
// save dialog points, without overwriting existing files.
func (p *terminalPresenter) SaveArtifact(name string, r io.Reader) (string, error) {
	target, err := p.saveTarget(name)
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(target)
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("close %s: %w", target, err)
	}

	p.mu.Lock()
	p.saved = append(p.saved, target)
	p.mu.Unlock()

	if filehandler.CategoryOf(target) == filehandler.CategoryArchive {
		p.printArchiveSummary(target)
	}
	return target, nil
}

func (p *terminalPresenter) saveTarget(name string) (string, error) {
	if p.saveDialog {
		return cli.PickSaveLocation(name)
	}
	return uniquePath(filepath.Join(p.outputDir, name))
}

// uniquePath returns path, or "name (n).ext" for the first n that is free.
func uniquePath(path string) (string, error) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	candidate := path
	for n := 1; n < 1000; n++ {
		if _, err := os.Stat(candidate); errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		} else if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
	}
	return "", fmt.Errorf("no free file name for %s", path)
}

func (p *terminalPresenter) printArchiveSummary(path string) {
	summary, err := archive.Inspect(path)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("Saved artifact is not a readable archive")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "📦 Archive contents (%d files, %s):\n", len(summary.Entries), cli.FormatBytes(int64(summary.TotalSize)))
	for _, e := range summary.Entries {
		fmt.Fprintf(p.out, "   - %s (%s, %s)\n", e.Name, cli.FormatBytes(int64(e.Size)), e.Method)
	}

	if err := archive.Verify(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Saved archive failed verification")
		fmt.Fprintf(p.out, "⚠️  The downloaded archive looks corrupt: %v\n", err)
	}
}

// errorCount reports how many error notices were shown.
func (p *terminalPresenter) errorCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errors
}
