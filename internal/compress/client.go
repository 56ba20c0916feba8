// Package compress is the HTTP client for the remote compression service.
//
// A job is one multipart POST to <base>/compress carrying the batch under the
// form name "files" plus the configuration fields. The service answers with a
// JSON JobResult envelope whose download_url is fetched afterwards with
// Retrieve. Both calls share a cookie jar, so a session cookie set by the
// service authenticates the download without a separate token.
package compress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/fpang/batch-compress/internal/filehandler"
	"github.com/fpang/batch-compress/internal/jobconfig"
	"github.com/fpang/batch-compress/internal/jobs"
	"github.com/fpang/batch-compress/internal/jsonutil"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"
)

const (
	// compressPath is appended to the base URL for submissions.
	compressPath = "/compress"

	// fileFieldName is the multipart form name every file is sent under.
	fileFieldName = "files"

	// RequestIDHeader carries the job ID on submissions.
	RequestIDHeader = "X-Request-ID"

	// maxEnvelopeBytes caps how much of a submission response is read.
	maxEnvelopeBytes = 1 << 20
)

// Client submits compression jobs and retrieves their artifacts.
// Timeouts are applied per call through the context; the underlying
// http.Client has none because uploads of up to 1 GiB per file are streamed.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	tempDir    string
}

// NewClient creates a client for the service at baseURL (e.g.
// "http://localhost:8000"). The client owns a cookie jar for session cookies.
func NewClient(baseURL string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse service URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("service URL must be http or https, got %q", baseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	return &Client{
		httpClient: &http.Client{Jar: jar},
		baseURL:    u,
	}, nil
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Submit sends one job and returns the decoded envelope. The request ID is
// taken from ctx (see jobs.WithID) or generated.
//
// An empty batch returns ErrNoFiles without sending anything. Every other
// failure, including a success=false envelope, is a *SubmissionError.
func (c *Client) Submit(ctx context.Context, cfg jobconfig.JobConfiguration) (*JobResult, error) {
	if len(cfg.Files) == 0 {
		return nil, ErrNoFiles
	}

	requestID, ok := jobs.IDFrom(ctx)
	if !ok {
		requestID = jobs.GenerateID(jobs.Prefix)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	writeDone := make(chan error, 1)
	go func() {
		err := writeMultipart(mw, cfg)
		pw.CloseWithError(err)
		writeDone <- err
	}()

	endpoint := c.baseURL.JoinPath(compressPath).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		pr.Close()
		<-writeDone
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	log.Debug().
		Str("jobId", requestID).
		Str("method", http.MethodPost).
		Str("url", endpoint).
		Int("fileCount", len(cfg.Files)).
		Msg("Compression request")

	startTime := time.Now()
	httpResp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)

	// Unblock the writer if the server answered before reading the whole body.
	pr.Close()
	writeErr := <-writeDone

	if err != nil {
		log.Debug().Str("jobId", requestID).Int("statusCode", 0).Dur("duration", duration).Err(err).Msg("Compression response")
		return nil, transportError(ctx, err, writeErr)
	}
	defer httpResp.Body.Close()

	log.Debug().
		Str("jobId", requestID).
		Int("statusCode", httpResp.StatusCode).
		Dur("duration", duration).
		Msg("Compression response")

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxEnvelopeBytes))
	if err != nil {
		return nil, &SubmissionError{
			StatusCode: httpResp.StatusCode,
			Message:    "could not read the service response",
			Err:        err,
		}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		msg := fmt.Sprintf("service returned %s", http.StatusText(httpResp.StatusCode))
		if env, err := jsonutil.ParseJSON[JobResult](body); err == nil && env.Error != "" {
			msg = env.Error
		}
		return nil, &SubmissionError{StatusCode: httpResp.StatusCode, Message: msg}
	}

	result, err := jsonutil.ParseJSON[JobResult](body)
	if err != nil {
		return nil, &SubmissionError{
			StatusCode: httpResp.StatusCode,
			Message:    "invalid response from the compression service",
			Err:        err,
		}
	}
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "the service reported a failure without details"
		}
		log.Warn().Str("jobId", requestID).Str("error", msg).Msg("Compression service reported failure")
		return nil, &SubmissionError{StatusCode: httpResp.StatusCode, Message: msg}
	}

	result.RequestID = requestID
	log.Info().
		Str("jobId", requestID).
		Int("filesProcessed", result.Stats.FilesProcessed).
		Int64("originalSize", result.Stats.OriginalSize).
		Int64("compressedSize", result.Stats.CompressedSize).
		Bool("hasDownload", result.DownloadURL != "").
		Dur("duration", duration).
		Msg("Compression job completed")
	return &result, nil
}

// transportError maps a failed round trip to a SubmissionError, preferring a
// local file read failure or a context expiry over the generic message.
func transportError(ctx context.Context, err, writeErr error) error {
	switch {
	case writeErr != nil && !errors.Is(writeErr, io.ErrClosedPipe):
		return &SubmissionError{Message: "could not read a selected file", Err: writeErr}
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &SubmissionError{Message: "the compression service did not respond in time", Err: err}
	case errors.Is(ctx.Err(), context.Canceled):
		return &SubmissionError{Message: "the request was cancelled", Err: err}
	default:
		return &SubmissionError{Message: "could not reach the compression service", Err: err}
	}
}

// writeMultipart writes the configuration fields followed by every file.
func writeMultipart(mw *multipart.Writer, cfg jobconfig.JobConfiguration) error {
	for _, f := range cfg.Fields() {
		if err := mw.WriteField(f.Name, f.Value); err != nil {
			return fmt.Errorf("write field %s: %w", f.Name, err)
		}
	}
	for _, file := range cfg.Files {
		if err := writeFilePart(mw, file); err != nil {
			return err
		}
	}
	return mw.Close()
}

// quoteEscaper keeps a local file name from breaking out of the quoted
// filename parameter or the part header.
var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "%22", "\r", "%0D", "\n", "%0A")

func writeFilePart(mw *multipart.Writer, file filehandler.CandidateFile) error {
	contentType := file.MIMEType
	if contentType == "" {
		contentType = filehandler.GenericMIMEType
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		fileFieldName, quoteEscaper.Replace(file.Name)))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part for %s: %w", file.Name, err)
	}

	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer rc.Close()

	if _, err := io.Copy(part, rc); err != nil {
		return fmt.Errorf("stream %s: %w", file.Name, err)
	}
	return nil
}
