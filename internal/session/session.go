// Package session drives the job lifecycle: batch intake through admission,
// preview refresh, configuration assembly, submission with projected
// progress, reconciliation, and delayed retrieval of the result.
//
// Batch mutations are serialized by a mutex. A submission holds the busy flag
// for its whole round trip; a second Submit while one is in flight is
// rejected with ErrJobInFlight. A scheduled retrieval is cancelled when the
// context passed to Submit is done or when the Session is closed.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fpang/batch-compress/internal/admission"
	"github.com/fpang/batch-compress/internal/batch"
	"github.com/fpang/batch-compress/internal/clock"
	"github.com/fpang/batch-compress/internal/compress"
	"github.com/fpang/batch-compress/internal/filehandler"
	"github.com/fpang/batch-compress/internal/jobconfig"
	"github.com/fpang/batch-compress/internal/jobs"
	"github.com/fpang/batch-compress/internal/jobutil"
	"github.com/fpang/batch-compress/internal/metrics"
	"github.com/fpang/batch-compress/internal/preview"
	"github.com/fpang/batch-compress/internal/progress"
	"github.com/fpang/batch-compress/internal/reconcile"
	"github.com/rs/zerolog/log"
)

// ErrJobInFlight is returned by Submit while another job is outstanding.
var ErrJobInFlight = errors.New("a compression job is already in progress")

// metricsNamespace groups the per-job metrics event.
const metricsNamespace = "BatchCompress"

// Service is the remote side of a job. *compress.Client implements it.
type Service interface {
	Submit(ctx context.Context, cfg jobconfig.JobConfiguration) (*compress.JobResult, error)
	Retrieve(ctx context.Context, ref string) (*compress.Artifact, error)
}

// Options configures a Session. Zero values take the defaults noted.
type Options struct {
	Policy admission.Policy // admission.DefaultPolicy()
	Clock  clock.Clock      // clock.Real()

	RequestTimeout   time.Duration // 10m
	RetrievalTimeout time.Duration // 5m
	RetrievalDelay   time.Duration // 500ms; negative means 0

	// Progress tunes the projector. Its Clock is replaced by Options.Clock.
	Progress progress.Options
}

// Session owns the batch and runs jobs against a Service.
type Session struct {
	service   Service
	presenter Presenter
	opts      Options
	projector *progress.Projector

	mu       sync.Mutex
	registry *batch.Registry
	busy     bool

	// ctx is cancelled by Close and bounds every retrieval.
	ctx    context.Context
	cancel context.CancelFunc

	pendingMu sync.Mutex
	pending   map[*clock.Timer]context.CancelFunc
	inflight  sync.WaitGroup
}

// New creates a Session with an empty batch.
func New(service Service, presenter Presenter, opts Options) *Session {
	if opts.Policy.MaxCount == 0 {
		opts.Policy = admission.DefaultPolicy()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Minute
	}
	if opts.RetrievalTimeout <= 0 {
		opts.RetrievalTimeout = 5 * time.Minute
	}
	if opts.RetrievalDelay < 0 {
		opts.RetrievalDelay = 0
	}
	opts.Progress.Clock = opts.Clock

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		service:   service,
		presenter: presenter,
		opts:      opts,
		projector: progress.New(opts.Progress, presenter.ShowProgress),
		registry:  batch.NewRegistry(),
		ctx:       ctx,
		cancel:    cancel,
		pending:   make(map[*clock.Timer]context.CancelFunc),
	}
}

// Offer runs candidates through admission. When nothing is accepted the batch
// is left untouched and every reason is reported; otherwise the batch is
// replaced by the accepted files and any rejections are reported as one
// warning.
func (s *Session) Offer(candidates []filehandler.CandidateFile) admission.Result {
	result := admission.Filter(candidates, s.opts.Policy)

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(result.Accepted) == 0 {
		if err := result.Err(); err != nil {
			s.presenter.Notify(Notice{Level: LevelError, Message: err.Error()})
		}
		return result
	}

	s.registry.ReplaceAll(result.Accepted)
	if warning := result.Warning(); warning != "" {
		s.presenter.Notify(Notice{Level: LevelWarning, Message: warning})
	}
	log.Info().
		Int("accepted", len(result.Accepted)).
		Int("rejected", len(result.Rejected)).
		Str("totalSize", humanize.IBytes(uint64(s.registry.TotalSize()))).
		Msg("Batch updated")
	s.refreshPreviewLocked()
	return result
}

// RemoveAt removes the file at index i. An out-of-range index changes nothing.
func (s *Session) RemoveAt(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.registry.RemoveAt(i); err != nil {
		return err
	}
	s.refreshPreviewLocked()
	return nil
}

// Clear empties the batch and resets the preview.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.registry.Clear()
	s.presenter.ResetPreview()
}

// Files returns a copy of the current batch.
func (s *Session) Files() []filehandler.CandidateFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.List()
}

// State reports whether the batch is empty.
func (s *Session) State() batch.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.State()
}

// Busy reports whether a submission is outstanding.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *Session) refreshPreviewLocked() {
	if s.registry.State() == batch.Empty {
		s.presenter.ResetPreview()
		return
	}
	files := s.registry.List()
	s.presenter.ShowPreview(preview.Project(files), preview.EstimateSavings(files))
}

// Submit assembles the configuration from form, sends the current batch, and
// reconciles the result. Every failure is reported to the presenter exactly
// once and returned. On success with a download reference, retrieval is
// scheduled after the retrieval delay; use Wait to block until it finishes.
// Cancelling ctx also cancels that retrieval.
func (s *Session) Submit(ctx context.Context, form jobconfig.FormSnapshot) error {
	parent := ctx

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		s.presenter.Notify(Notice{Level: LevelWarning, Message: "A compression job is already in progress"})
		return ErrJobInFlight
	}
	files := s.registry.List()
	totalSize := s.registry.TotalSize()
	if len(files) == 0 {
		s.mu.Unlock()
		s.presenter.Notify(Notice{Level: LevelError, Message: "Please select files to compress"})
		return compress.ErrNoFiles
	}
	cfg, err := jobconfig.Assemble(form, files)
	if err != nil {
		s.mu.Unlock()
		s.presenter.Notify(Notice{Level: LevelError, Message: err.Error()})
		return err
	}
	s.busy = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	jobID := jobs.GenerateID(jobs.Prefix)
	rec := metrics.New(metricsNamespace).
		Dimension("Mode", cfg.Mode.Name()).
		Property("jobId", jobID).
		Metric("FileCount", float64(len(files)), metrics.UnitCount).
		Metric("BatchBytes", float64(totalSize), metrics.UnitBytes)
	if target, ok := cfg.Mode.(jobconfig.TargetSize); ok {
		rec.Metric("TargetBytes", float64(target.Bytes()), metrics.UnitBytes)
	}
	defer rec.Flush()

	log.Info().
		Str("jobId", jobID).
		Int("fileCount", len(files)).
		Str("mode", cfg.Mode.Name()).
		Msg("Submitting compression job")

	ctx, cancel := context.WithTimeout(jobs.WithID(ctx, jobID), s.opts.RequestTimeout)
	defer cancel()

	s.presenter.ShowProcessing(true)
	s.projector.Start()
	finish := sync.OnceFunc(func() {
		s.projector.Stop()
		s.presenter.ShowProcessing(false)
	})
	defer finish()

	result, err := s.service.Submit(ctx, cfg)
	finish()
	rec.Elapsed("SubmitLatencyMs")
	if err != nil {
		rec.Count("JobFailed")
		s.reportFailure(jobID, "submit", submissionMessage(err), err)
		return err
	}

	outcome, err := reconcile.Reconcile(result)
	if err != nil {
		rec.Count("JobFailed")
		s.reportFailure(jobID, "reconcile", "Compression failed: "+err.Error(), err)
		return err
	}

	rec.Count("JobSucceeded").
		Metric("OriginalBytes", float64(outcome.Stats.OriginalSize), metrics.UnitBytes).
		Metric("CompressedBytes", float64(outcome.Stats.CompressedSize), metrics.UnitBytes).
		Metric("CompressionRatio", outcome.Stats.CompressionRatio, metrics.UnitPercent)

	if outcome.ProtectionNotice != "" {
		s.presenter.Notify(Notice{Level: LevelSuccess, Message: outcome.ProtectionNotice})
	}
	s.presenter.ShowStats(outcome)
	s.presenter.Notify(Notice{
		Level:   LevelSuccess,
		Message: "Compression complete: " + humanize.IBytes(uint64(max(outcome.Savings, 0))) + " saved",
	})

	if outcome.HasDownload() {
		s.scheduleRetrieval(parent, jobID, outcome.DownloadURL)
	}
	return nil
}

// scheduleRetrieval fetches ref after the retrieval delay so the stats view
// renders first. The retrieval context is done when parent is done or the
// Session is closed; a retrieval still waiting on its delay is then dropped.
func (s *Session) scheduleRetrieval(parent context.Context, jobID, ref string) {
	ctx, cancel := context.WithCancel(parent)
	stopClose := context.AfterFunc(s.ctx, cancel)
	release := func() {
		stopClose()
		cancel()
	}

	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	s.inflight.Add(1)
	var timer *clock.Timer
	timer = s.opts.Clock.AfterFunc(s.opts.RetrievalDelay, func() {
		defer s.inflight.Done()
		defer release()
		s.pendingMu.Lock()
		delete(s.pending, timer)
		s.pendingMu.Unlock()
		s.retrieve(ctx, jobID, ref)
	})
	s.pending[timer] = release
	context.AfterFunc(ctx, func() {
		s.pendingMu.Lock()
		defer s.pendingMu.Unlock()
		if s.dropPendingLocked(timer) {
			log.Info().Str("jobId", jobID).Msg("Retrieval cancelled before it started")
		}
	})

	log.Debug().
		Str("jobId", jobID).
		Dur("delay", s.opts.RetrievalDelay).
		Msg("Retrieval scheduled")
}

func (s *Session) retrieve(parent context.Context, jobID, ref string) {
	if parent.Err() != nil {
		log.Info().Str("jobId", jobID).Msg("Retrieval cancelled before it started")
		return
	}
	ctx, cancel := context.WithTimeout(jobs.WithID(parent, jobID), s.opts.RetrievalTimeout)
	defer cancel()

	artifact, err := s.service.Retrieve(ctx, ref)
	if err != nil {
		if errors.Is(parent.Err(), context.Canceled) {
			log.Info().Str("jobId", jobID).Err(err).Msg("Retrieval cancelled")
			s.presenter.Notify(Notice{Level: LevelWarning, Message: "Download cancelled"})
			return
		}
		s.reportFailure(jobID, "retrieve", "Download failed: "+retrievalMessage(err), err)
		return
	}
	defer artifact.Close()

	rc, err := artifact.Open()
	if err != nil {
		s.reportFailure(jobID, "retrieve", "Download failed: could not read the downloaded file", err)
		return
	}
	defer rc.Close()

	saved, err := s.presenter.SaveArtifact(artifact.Name, rc)
	if err != nil {
		s.reportFailure(jobID, "save", "Could not save "+artifact.Name+": "+err.Error(), err)
		return
	}

	log.Info().Str("jobId", jobID).Str("path", saved).Int64("size", artifact.Size).Msg("Artifact saved")
	s.presenter.Notify(Notice{
		Level:   LevelSuccess,
		Message: fmt.Sprintf("Saved %s (%s)", saved, humanize.IBytes(uint64(artifact.Size))),
	})
}

// Wait blocks until every scheduled retrieval has run or been cancelled.
func (s *Session) Wait() {
	s.inflight.Wait()
}

// Close drops retrievals that have not started yet and cancels the one in
// progress, if any. Safe to call more than once.
func (s *Session) Close() {
	s.cancel()

	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	for timer := range s.pending {
		s.dropPendingLocked(timer)
	}
}

// dropPendingLocked stops a retrieval timer that has not fired. It reports
// whether the retrieval was dropped. pendingMu must be held.
func (s *Session) dropPendingLocked(timer *clock.Timer) bool {
	release, ok := s.pending[timer]
	if !ok {
		return false
	}
	delete(s.pending, timer)
	if !timer.Stop() {
		return false
	}
	release()
	s.inflight.Done()
	return true
}

func (s *Session) reportFailure(jobID, stage, msg string, err error) {
	jobutil.ReportFailure(jobID, stage, msg, err, func(_, msg string) {
		s.presenter.Notify(Notice{Level: LevelError, Message: msg})
	})
}

// submissionMessage prefers the service's own message.
func submissionMessage(err error) string {
	var subErr *compress.SubmissionError
	if errors.As(err, &subErr) {
		return "Compression failed: " + subErr.Message
	}
	return "Compression failed: " + err.Error()
}

func retrievalMessage(err error) string {
	var retErr *compress.RetrievalError
	if errors.As(err, &retErr) {
		return retErr.Message
	}
	return err.Error()
}
