package compress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/fpang/batch-compress/internal/filehandler"
	"github.com/rs/zerolog/log"
)

// DefaultArtifactName is used when neither the response nor the reference
// yields a usable file name.
const DefaultArtifactName = "compressed_files.zip"

// Artifact is a downloaded payload spooled to a temporary file. It must be
// closed once saved; Close removes the temporary file.
type Artifact struct {
	Name        string
	Size        int64
	ContentType string

	mu     sync.Mutex
	path   string
	closed bool
}

// Open returns a reader over the payload. It fails after Close.
func (a *Artifact) Open() (io.ReadCloser, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, fmt.Errorf("artifact %s already released", a.Name)
	}
	return os.Open(a.path)
}

// Path returns the location of the temporary file.
func (a *Artifact) Path() string {
	return a.path
}

// Close removes the temporary file. Safe to call more than once.
func (a *Artifact) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if err := os.Remove(a.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove artifact: %w", err)
	}
	log.Debug().Str("path", a.path).Msg("Artifact released")
	return nil
}

// Retrieve downloads the artifact at ref. Relative references resolve against
// the service base URL. The request carries the client's session cookies.
// Failures are *RetrievalError and leave no temporary file behind.
func (c *Client) Retrieve(ctx context.Context, ref string) (*Artifact, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, &RetrievalError{Message: "no download reference"}
	}
	target, err := c.baseURL.Parse(ref)
	if err != nil {
		return nil, &RetrievalError{Message: "invalid download reference", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, &RetrievalError{Message: "invalid download reference", Err: err}
	}

	log.Debug().Str("url", target.String()).Msg("Download request")
	startTime := time.Now()
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		msg := "could not reach the download endpoint"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			msg = "the download did not complete in time"
		}
		return nil, &RetrievalError{Message: msg, Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &RetrievalError{
			StatusCode: httpResp.StatusCode,
			Message:    fmt.Sprintf("server returned %s", http.StatusText(httpResp.StatusCode)),
		}
	}

	tmp, err := os.CreateTemp(c.tempDir, "compress-artifact-*")
	if err != nil {
		return nil, &RetrievalError{Message: "could not create a temporary file", Err: err}
	}
	n, copyErr := io.Copy(tmp, httpResp.Body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmp.Name())
		return nil, &RetrievalError{Message: "download interrupted", Err: errors.Join(copyErr, closeErr)}
	}

	artifact := &Artifact{
		Name:        artifactName(httpResp.Header.Get("Content-Disposition"), target),
		Size:        n,
		ContentType: httpResp.Header.Get("Content-Type"),
		path:        tmp.Name(),
	}

	log.Info().
		Str("name", artifact.Name).
		Int64("size", n).
		Dur("duration", time.Since(startTime)).
		Msg("Artifact downloaded")
	return artifact, nil
}

// artifactName derives a file name from the disposition header, else from the
// last path segment of the reference, else DefaultArtifactName.
func artifactName(disposition string, ref *url.URL) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := baseName(params["filename"]); name != "" {
				return name
			}
		}
	}
	if name := baseName(ref.Path); name != "" && filehandler.Extension(name) != "" {
		return name
	}
	return DefaultArtifactName
}

// baseName strips any directory components so a server-supplied name cannot
// escape the output directory.
func baseName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	switch name {
	case "", ".", "..", "/":
		return ""
	}
	return name
}
