package compress

import (
	"errors"
	"fmt"
)

// ErrNoFiles is returned by Submit for an empty batch. No request is sent.
var ErrNoFiles = errors.New("no files selected")

// SubmissionError covers every way a submission can fail after a request was
// attempted: transport failure, a non-2xx status, an undecodable body, or a
// success=false envelope. StatusCode is 0 when no response was received.
type SubmissionError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *SubmissionError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("compression failed (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return "compression failed: " + e.Message
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// RetrievalError is an artifact fetch failure after the job itself succeeded.
type RetrievalError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RetrievalError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("download failed (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return "download failed: " + e.Message
}

func (e *RetrievalError) Unwrap() error { return e.Err }
