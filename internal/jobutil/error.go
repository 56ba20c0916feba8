// Package jobutil provides shared helpers for compression job lifecycle
// operations.
//
// ReportFailure unifies the pattern used by every failing stage of a job
// (submission, reconciliation, retrieval): log the error with the job ID,
// then hand one user-facing message to the writer.
package jobutil

import (
	"github.com/rs/zerolog/log"
)

// FailureWriter delivers a user-facing failure message for a job.
type FailureWriter func(jobID, msg string)

// ReportFailure logs the error and delegates delivery to the provided writer.
func ReportFailure(jobID, stage, msg string, err error, write FailureWriter) {
	log.Error().
		Err(err).
		Str("jobId", jobID).
		Str("stage", stage).
		Str("message", msg).
		Msg("Job failed")
	write(jobID, msg)
}
